// Package render turns replies into the Arabic-first plain text the chat
// transports send.
package render

import (
	"fmt"
	"strings"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

// RegionDirectory resolves region metadata for display.
type RegionDirectory interface {
	Region(code domain.RegionCode) (domain.Region, bool)
	Regions() []domain.Region
}

// Renderer formats replies. It is stateless and safe for concurrent use.
type Renderer struct {
	regions RegionDirectory
}

// New creates a Renderer.
func New(regions RegionDirectory) *Renderer {
	return &Renderer{regions: regions}
}

// Reply renders r as plain text.
func (r *Renderer) Reply(reply domain.Reply) string {
	switch reply.Kind {
	case domain.ReplyRateLimited:
		return fmt.Sprintf("⏳ انتظر %d ثانية قبل الطلب التالي.", reply.RetryAfterSeconds)

	case domain.ReplyNoPriorProduct:
		return "ما عندي لعبة سابقة لك 😅 اكتب اسم لعبة مثل: resident evil ثم اختر رقم،\n" +
			"أو اسم لعبة + بلد مثل: elden ring turkey"

	case domain.ReplyChoicePrompt:
		return r.choicePrompt(reply)

	case domain.ReplyChoiceConfirmed:
		name := ""
		if reply.Product != nil {
			name = reply.Product.Name
		}
		return fmt.Sprintf("✅ تم اختيار: %s\n\n✍️ اكتب الكل لعرض كل الدول\nأو اكتب دول مثل:\nturkey ukraine ksa", name)

	case domain.ReplyOutOfRangeChoice:
		return fmt.Sprintf("اكتب رقم من 1 إلى %d.", reply.MaxIndex)

	case domain.ReplyNoResults:
		return "❌ ما لقيت نتائج. جرّب تكتب الاسم بالإنجليزي وبشكل أوضح."

	case domain.ReplyPriceReport:
		return r.priceReport(reply)
	}

	return "اكتب مثل: elden ring turkey أو forza horizon 5 all"
}

func (r *Renderer) choicePrompt(reply domain.Reply) string {
	var b strings.Builder
	b.WriteString("اختر اللعبة (Choice)\n")
	fmt.Fprintf(&b, "اكتب رقم الاختيار فقط خلال %d ثانية:\n\n", reply.ExpiresInSeconds)
	for i, c := range reply.Candidates {
		fmt.Fprintf(&b, "%d) %s\n", i+1, c.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) priceReport(reply domain.Reply) string {
	var b strings.Builder
	if reply.Product != nil {
		b.WriteString(reply.Product.Name)
		b.WriteString("\n")
	}
	if reply.ProductURL != "" {
		fmt.Fprintf(&b, "🔗 %s\n", reply.ProductURL)
	}
	b.WriteString("\n")

	for _, q := range reply.Quotes {
		b.WriteString(r.quoteLine(q))
		b.WriteString("\n")
	}

	if reply.Comparison != nil {
		if extra := r.comparison(*reply.Comparison); extra != "" {
			b.WriteString("\n")
			b.WriteString(extra)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) quoteLine(q domain.PriceQuote) string {
	prefix := fmt.Sprintf("%s %s:", r.flag(q.Region), q.Region)
	switch {
	case !q.Available:
		return prefix + " لا يوجد سعر الآن (مجانية/غير متاحة/حزمة)"
	case q.Normalized == nil:
		return fmt.Sprintf("%s %s %s (خصم %d%%)", prefix, q.Amount, q.Currency, q.DiscountPercent)
	default:
		return fmt.Sprintf("%s %s %s ≈ %s USD (خصم %d%%)", prefix, q.Amount, q.Currency, *q.Normalized, q.DiscountPercent)
	}
}

func (r *Renderer) comparison(c domain.Comparison) string {
	if c.Cheapest == nil || c.Cheapest.Normalized == nil {
		return ""
	}

	lines := []string{fmt.Sprintf("🔥 الأرخص: %s %s (%s USD)",
		r.flag(c.Cheapest.Region), c.Cheapest.Region, *c.Cheapest.Normalized)}

	if s := c.Spread; s != nil {
		if s.Against != "" {
			lines = append(lines, fmt.Sprintf("💸 الفرق مع %s: %s USD", r.arabicName(s.Against), s.Amount))
		} else {
			lines = append(lines, fmt.Sprintf("💸 الفرق (أغلى - أرخص): %s USD", s.Amount))
		}
	}
	return strings.Join(lines, "\n")
}

// Regions lists every supported region with a few aliases that select it.
func (r *Renderer) Regions() string {
	var b strings.Builder
	b.WriteString("الدول المدعومة (Countries Supported)\n\n")
	for _, reg := range r.regions.Regions() {
		fmt.Fprintf(&b, "%s %s (%s) أمثلة: %s\n", reg.Flag, reg.NameAR, reg.Code, strings.Join(reg.Examples, ", "))
	}
	b.WriteString("\n💡 all / الكل = عرض كل الدول الافتراضية.")
	return b.String()
}

func (r *Renderer) flag(code domain.RegionCode) string {
	if reg, ok := r.regions.Region(code); ok {
		return reg.Flag
	}
	return "🏳️"
}

func (r *Renderer) arabicName(code domain.RegionCode) string {
	if reg, ok := r.regions.Region(code); ok && reg.NameAR != "" {
		return reg.NameAR
	}
	return string(code)
}
