// smoke-portal drives the full fan flow in-process: onboarding, the
// guest checkout interruption, code verification, resume and both
// checkouts. It exits non-zero on the first broken invariant.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tribuna.app/internal/catalog"
	"tribuna.app/internal/otp"
	"tribuna.app/internal/portal"
	"tribuna.app/internal/session"
)

func main() {
	log.SetFlags(0)
	ctx := context.Background()

	// Immediate scheduler queue keeps the run deterministic.
	var pending []func()
	sched := func(_ time.Duration, fn func()) { pending = append(pending, fn) }
	fire := func() {
		for len(pending) > 0 {
			fn := pending[0]
			pending = pending[1:]
			fn()
		}
	}

	provider := catalog.NewDemo(time.Now().UTC())
	sess := session.New(provider, session.WithOTPOptions(otp.WithScheduler(sched)))

	must(sess.CompleteSplash())
	must(sess.CompleteOnboarding())
	must(sess.SkipAuth())
	must(sess.SelectClub(ctx, "rsc-vermillon"))

	p := sess.Portal()
	must(p.AddToCart(ctx, "jersey-home", "M", "red", 2))

	// Guest checkout defers into the login flow.
	if err := p.BeginCheckout(); err != portal.ErrAuthRequired {
		log.Fatalf("guest checkout: expected auth redirect, got %v", err)
	}
	if sess.Phase() != session.PhaseAuth {
		log.Fatalf("expected authenticating phase, got %s", sess.Phase())
	}

	neg := sess.Negotiator()
	must(neg.SubmitPhone("0612345678"))
	must(neg.PasteCode("123456"))
	fire()

	if sess.Phase() != session.PhaseInPortal {
		log.Fatalf("expected resumed portal, got %s", sess.Phase())
	}
	resumed := sess.Portal()
	if resumed.ActiveTab() != portal.TabBoutique || resumed.ActiveOverlay() != portal.OverlayCheckout {
		log.Fatalf("resume position wrong: %s/%s", resumed.ActiveTab(), resumed.ActiveOverlay())
	}

	order, err := resumed.ConfirmMerchandise(ctx)
	must(err)
	if order.Total != 2*8990 {
		log.Fatalf("unexpected order total: %d", order.Total)
	}

	must(resumed.SelectMatch(ctx, "match-derby"))
	must(resumed.SetTicketSelections(map[string]int{"vip": 2}))
	purchased, err := resumed.ConfirmTickets(ctx)
	must(err)
	if len(purchased) != 1 || purchased[0].Quantity != 2 {
		log.Fatalf("unexpected ticket purchase: %+v", purchased)
	}

	// A retried confirmation must not duplicate the record.
	if _, err := resumed.ConfirmTickets(ctx); err == nil {
		log.Fatal("retried ticket confirmation must be rejected")
	}
	if got := len(resumed.History().List()); got != 1 {
		log.Fatalf("expected one history record, got %d", got)
	}

	fmt.Printf("✅ portal smoke test passed: order=%s ticket=%s\n", order.Reference, purchased[0].ID)
}

func must(err error) {
	if err != nil {
		log.Fatalf("smoke: %v", err)
	}
}
