package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"review_ingest/internal/domain"
)

// Summarize computes the two report facts over a finalized table.
func Summarize(t domain.Table) domain.Summary {
	var s domain.Summary
	seen := map[string]struct{}{}
	counts := map[string]int{}
	for i := range t {
		r := &t[i]
		if r.ASIN == nil {
			continue
		}
		if r.Overall != nil && *r.Overall > 3 && r.Style != nil && strings.TrimSpace(*r.Style) == "Hardcover" {
			if _, ok := seen[*r.ASIN]; !ok {
				seen[*r.ASIN] = struct{}{}
				s.HardcoverASINs = append(s.HardcoverASINs, *r.ASIN)
			}
		}
		n := counts[*r.ASIN]
		if r.ReviewerID != nil {
			n++
		}
		counts[*r.ASIN] = n
	}

	// group keys iterate sorted, so ties go to the smallest ASIN
	asins := make([]string, 0, len(counts))
	for a := range counts {
		asins = append(asins, a)
	}
	sort.Strings(asins)
	for _, a := range asins {
		if s.TopASIN == nil || counts[a] > s.TopCount {
			a := a
			s.TopASIN, s.TopCount = &a, counts[a]
		}
	}
	return s
}

// FormatReport renders the plain-text mail body. ASINs are listed quoted,
// as in ['A1', 'B2'].
func FormatReport(s domain.Summary) string {
	top := "none"
	if s.TopASIN != nil {
		top = *s.TopASIN
	}
	quoted := make([]string, len(s.HardcoverASINs))
	for i, a := range s.HardcoverASINs {
		quoted[i] = "'" + a + "'"
	}
	return fmt.Sprintf("ASINs with overall > 3 and Format Hardcover: [%s]\n\nASIN with most reviews: %s",
		strings.Join(quoted, ", "), top)
}

// Notifier mails the daily summary. Send failures are logged here and
// returned wrapped in domain.ErrNotification; the fan-out does not escalate them.
type Notifier struct {
	mailer  domain.Mailer
	subject string
	log     zerolog.Logger
}

func NewNotifier(m domain.Mailer, subject string, l zerolog.Logger) *Notifier {
	return &Notifier{mailer: m, subject: subject, log: l}
}

func (n *Notifier) Write(ctx context.Context, t domain.Table) error {
	n.log.Info().Msg("sending email report")
	msg := FormatReport(Summarize(t))
	n.log.Info().Str("body", msg).Msg("email message")
	if err := n.mailer.Send(ctx, n.subject, msg); err != nil {
		n.log.Error().Err(err).Msg("error sending email")
		return fmt.Errorf("%w: %w", domain.ErrNotification, err)
	}
	n.log.Info().Msg("email report sent successfully")
	return nil
}
