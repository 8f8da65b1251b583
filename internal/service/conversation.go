package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/flow"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/parser"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/port"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/pricing"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/session"
)

// QueryParser splits chat text into product and regions.
type QueryParser interface {
	Parse(text string) domain.ParsedQuery
}

// RegionCatalog supplies the region set used for "all".
type RegionCatalog interface {
	DefaultRegions() []domain.RegionCode
}

// PriceAggregator fetches a product's price across regions.
type PriceAggregator interface {
	Aggregate(ctx context.Context, product domain.ProductRef, regions []domain.RegionCode) []domain.PriceQuote
}

// ConversationConfig tunes the conversation.
type ConversationConfig struct {
	MaxSuggestions      int
	DefaultSearchRegion domain.RegionCode
	ReferenceRegion     domain.RegionCode
}

// Conversation turns one user's chat message into a Reply, keeping that
// user's session state in between.
type Conversation struct {
	parser     QueryParser
	regions    RegionCatalog
	sessions   *session.Store
	searcher   *Searcher
	aggregator PriceAggregator
	linker     port.ProductLinker
	cfg        ConversationConfig
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewConversation creates the conversation service with all dependencies injected.
func NewConversation(
	p QueryParser,
	regions RegionCatalog,
	sessions *session.Store,
	searcher *Searcher,
	aggregator PriceAggregator,
	linker port.ProductLinker,
	cfg ConversationConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Conversation {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 5
	}
	if cfg.DefaultSearchRegion == "" {
		cfg.DefaultSearchRegion = "SA"
	}
	return &Conversation{
		parser:     p,
		regions:    regions,
		sessions:   sessions,
		searcher:   searcher,
		aggregator: aggregator,
		linker:     linker,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleIncomingText handles one chat message. It never fails: upstream
// trouble turns into unavailable quotes or an empty search, and bad input
// into the matching reply kind.
func (c *Conversation) HandleIncomingText(ctx context.Context, userID string, channel domain.Channel, text string) domain.Reply {
	ctx, span := tracer.Start(ctx, "Conversation.HandleIncomingText")
	defer span.End()

	msgID := uuid.NewString()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("message.id", msgID),
		attribute.String("channel.transport", channel.Transport),
	)

	start := time.Now()
	log := c.logger.With(zap.String("user_id", userID), zap.String("message_id", msgID))

	reply := c.handle(ctx, log, SessionKey(channel, userID), text)
	reply.MessageID = msgID

	c.metrics.IncrReply(reply.Kind)
	c.metrics.RecordRequestDuration("handle_text", time.Since(start))
	span.SetAttributes(attribute.String("reply.kind", string(reply.Kind)))
	log.Info("message handled",
		zap.String("reply_kind", string(reply.Kind)),
		zap.String("transport", channel.Transport),
		zap.Duration("latency", time.Since(start)),
	)
	return reply
}

// SessionKey is the session store key for a user on a transport. Ids are
// only unique within their transport, so the same id arriving over two
// transports is two users.
func SessionKey(channel domain.Channel, userID string) string {
	return channel.Transport + ":" + userID
}

func (c *Conversation) handle(ctx context.Context, log *zap.Logger, userID, text string) domain.Reply {
	if wait := c.sessions.CheckCooldown(userID); wait > 0 {
		return domain.Reply{Kind: domain.ReplyRateLimited, RetryAfterSeconds: wait}
	}

	n, isDigits := parser.ParseChoice(text)
	in := flow.Input{IsDigits: isDigits, Query: c.parser.Parse(text)}
	if _, ok := c.sessions.GetPendingChoice(userID); ok {
		in.Choice = flow.AwaitingChoice
	}
	mem, hasMem := c.sessions.GetMemory(userID)
	if hasMem {
		in.Memory = flow.HasMemory
	}

	action := flow.Route(in)
	log.Debug("routed",
		zap.String("action", action.String()),
		zap.String("choice_state", in.Choice.String()),
		zap.String("memory_state", in.Memory.String()),
	)

	switch action {
	case flow.ActionResolveChoice:
		ref, err := c.sessions.ResolveChoice(userID, n)
		var oor *session.ErrChoiceOutOfRange
		switch {
		case err == nil:
			return domain.Reply{Kind: domain.ReplyChoiceConfirmed, Product: &ref}
		case errors.As(err, &oor):
			return domain.Reply{Kind: domain.ReplyOutOfRangeChoice, MaxIndex: oor.Max}
		}
		// the choice lapsed between routing and resolution
		in.Choice = flow.Idle
		return c.route(ctx, log, userID, flow.Route(in), in, mem)

	default:
		return c.route(ctx, log, userID, action, in, mem)
	}
}

func (c *Conversation) route(ctx context.Context, log *zap.Logger, userID string, action flow.Action, in flow.Input, mem session.Memory) domain.Reply {
	q := in.Query

	switch action {
	case flow.ActionPriceDefaultFromMemory:
		return c.priceReport(ctx, mem.Product, c.regions.DefaultRegions())

	case flow.ActionPriceRegionsFromMemory:
		return c.priceReport(ctx, mem.Product, q.Regions)

	case flow.ActionNoPriorProduct:
		return domain.Reply{Kind: domain.ReplyNoPriorProduct}

	case flow.ActionSearchCandidates:
		found := c.searcher.Search(ctx, q.ProductText, c.cfg.DefaultSearchRegion, c.cfg.MaxSuggestions)
		if len(found) == 0 {
			return domain.Reply{Kind: domain.ReplyNoResults}
		}
		c.sessions.SetPendingChoice(userID, found)
		return domain.Reply{
			Kind:             domain.ReplyChoicePrompt,
			Candidates:       found,
			ExpiresInSeconds: int(c.sessions.Config().ChoiceTTL / time.Second),
		}

	case flow.ActionSearchAndPrice:
		regions := q.Regions
		if q.AllRegions {
			regions = c.regions.DefaultRegions()
		}
		if len(regions) == 0 {
			return domain.Reply{Kind: domain.ReplyMalformedQuery}
		}
		found := c.searcher.Search(ctx, q.ProductText, regions[0], 1)
		if len(found) == 0 {
			return domain.Reply{Kind: domain.ReplyNoResults}
		}
		ref := domain.ProductRef{ID: found[0].ID, Name: found[0].Name, Kind: domain.VariantBase}
		c.sessions.SetMemory(userID, ref)
		log.Debug("product resolved", zap.String("product_id", string(ref.ID)))
		return c.priceReport(ctx, ref, regions)
	}

	return domain.Reply{Kind: domain.ReplyMalformedQuery}
}

func (c *Conversation) priceReport(ctx context.Context, product domain.ProductRef, regions []domain.RegionCode) domain.Reply {
	quotes := c.aggregator.Aggregate(ctx, product, regions)
	cmp := pricing.Compare(quotes, c.cfg.ReferenceRegion)

	reply := domain.Reply{
		Kind:       domain.ReplyPriceReport,
		Product:    &product,
		Quotes:     quotes,
		Comparison: &cmp,
	}
	if c.linker != nil {
		reply.ProductURL = c.linker.ProductURL(product.ID)
	}
	return reply
}
