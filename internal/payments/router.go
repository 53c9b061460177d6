package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/metrics"
	"github.com/bitbazaar/marketplace-backend/internal/models"
	"github.com/bitbazaar/marketplace-backend/internal/worker"
)

// Router is the purchase entry point: it validates the request, picks
// the rail and drives the order to a settled (or pending) state.
type Router struct {
	store    ledger.Store
	chain    chain.Client
	exec     *Executor
	poller   *Poller
	issuer   *CredentialIssuer
	wp       *worker.Pool
	feeRate  float64
	orderTTL time.Duration
	log      *slog.Logger
}

func NewRouter(store ledger.Store, c chain.Client, exec *Executor, poller *Poller, issuer *CredentialIssuer, wp *worker.Pool, feeRate float64, orderTTL time.Duration, log *slog.Logger) *Router {
	return &Router{
		store:    store,
		chain:    c,
		exec:     exec,
		poller:   poller,
		issuer:   issuer,
		wp:       wp,
		feeRate:  feeRate,
		orderTTL: orderTTL,
		log:      log,
	}
}

// PurchaseResult is what the HTTP boundary renders: the order, a
// download token when the purchase settled synchronously, and a
// human-readable status line.
type PurchaseResult struct {
	Order   models.Order `json:"order"`
	Token   string       `json:"token,omitempty"`
	Message string       `json:"message"`
}

// Route handles one purchase. The internal rail settles synchronously:
// reconcile, issue a token, done. The external rail submits the chain
// payment, writes the pending order and hands confirmation to a worker
// task detached from the request context, so a client disconnect never
// abandons a submitted payment.
func (r *Router) Route(ctx context.Context, buyerID, itemID string, rail models.PayRail) (PurchaseResult, error) {
	buyer, err := r.store.GetAccount(ctx, buyerID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("buyer %s: %w", buyerID, err)
	}
	item, err := r.store.GetItem(ctx, itemID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("item %s: %w", itemID, err)
	}
	if item.Status != models.ItemActive {
		return PurchaseResult{}, fmt.Errorf("item %s is inactive: %w", itemID, apperr.ErrNotFound)
	}

	// Amount is snapshotted here; later price edits never touch the order.
	order := models.Order{
		BuyerAccountID: buyer.ID,
		ItemID:         item.ID,
		Amount:         item.Price,
		PayRail:        rail,
		ExpiresAt:      time.Now().Add(r.orderTTL),
	}

	switch rail {
	case models.RailInternal:
		return r.routeInternal(ctx, buyer, order)
	case models.RailExternal:
		return r.routeExternal(ctx, buyer, item, order)
	}
	return PurchaseResult{}, fmt.Errorf("%w: unknown pay rail %q", apperr.ErrValidation, rail)
}

func (r *Router) routeInternal(ctx context.Context, buyer models.Account, order models.Order) (PurchaseResult, error) {
	// Advisory pre-check so underfunded buyers fail fast with no row
	// written. The authoritative guard is the conditional decrement
	// inside Reconcile.
	if buyer.InternalBalance < order.Amount {
		return PurchaseResult{}, fmt.Errorf("balance %d < price %d: %w",
			buyer.InternalBalance, order.Amount, apperr.ErrInsufficientFunds)
	}

	out, err := r.store.Reconcile(ctx, order, models.OutcomeConfirmed, r.feeRate)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(models.RailInternal), "rejected").Inc()
		return PurchaseResult{}, err
	}

	token, err := r.issuer.Issue(ctx, out)
	if err != nil {
		return PurchaseResult{}, err
	}

	metrics.OrdersTotal.WithLabelValues(string(models.RailInternal), string(out.Status)).Inc()
	r.log.Info("internal purchase settled", "order", out.ID, "buyer", buyer.ID, "amount", out.Amount)
	return PurchaseResult{Order: out, Token: token, Message: "purchase complete"}, nil
}

func (r *Router) routeExternal(ctx context.Context, buyer models.Account, item models.Item, order models.Order) (PurchaseResult, error) {
	seller, err := r.store.GetAccount(ctx, item.SellerAccountID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("seller %s: %w", item.SellerAccountID, err)
	}
	if seller.ExternalAddress == "" {
		return PurchaseResult{}, fmt.Errorf("%w: seller has no external address", apperr.ErrValidation)
	}

	// Best-effort pre-flight: an unreadable balance is a warning, not a
	// hard error; an underfunded wallet will be rejected by the chain.
	if buyer.ExternalAddress != "" {
		if bal, err := r.chain.GetBalance(ctx, buyer.ExternalAddress); err != nil {
			r.log.Warn("pre-flight balance check failed", "buyer", buyer.ID, "err", err)
		} else if bal.Sign() == 0 {
			r.log.Warn("buyer external wallet appears empty", "buyer", buyer.ID)
		}
	}

	out, err := r.exec.Submit(ctx, order, seller.ID, seller.ExternalAddress)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(models.RailExternal), "rejected").Inc()
		return PurchaseResult{}, err
	}
	metrics.OrdersTotal.WithLabelValues(string(models.RailExternal), string(out.Status)).Inc()

	// Confirmation runs detached from the request; it keeps polling even
	// if the client goes away.
	r.wp.Submit(func() { r.confirm(context.Background(), out.ID) })

	return PurchaseResult{
		Order:   out,
		Message: "payment submitted; order pending confirmation",
	}, nil
}

// confirm drives one submitted order through poll -> reconcile -> issue.
// Safe to invoke more than once for the same order: the status re-read
// here and the guard inside Reconcile make the whole path idempotent.
func (r *Router) confirm(ctx context.Context, orderID string) {
	order, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		r.log.Error("confirm: load order", "order", orderID, "err", err)
		return
	}
	if order.Status == models.OrderSuccess {
		return
	}
	if order.ExternalTxRef == nil {
		r.log.Error("confirm: order has no tx reference", "order", orderID)
		return
	}

	outcome := r.poller.Await(ctx, *order.ExternalTxRef)

	out, err := r.store.Reconcile(ctx, order, outcome, r.feeRate)
	if err != nil {
		r.log.Error("confirm: reconcile", "order", orderID, "outcome", outcome.String(), "err", err)
		return
	}
	metrics.OrdersTotal.WithLabelValues(string(models.RailExternal), "confirm_"+outcome.String()).Inc()

	if out.Status != models.OrderSuccess {
		// Failed and unresolved orders stay pending; no sweeper flips
		// them and no token is ever issued for them.
		r.log.Info("external order not settled", "order", out.ID, "outcome", outcome.String(), "status", string(out.Status))
		return
	}

	if _, err := r.issuer.Issue(ctx, out); err != nil {
		r.log.Error("confirm: issue token", "order", out.ID, "err", err)
		return
	}
	r.log.Info("external purchase settled", "order", out.ID, "tx", *order.ExternalTxRef)
}

// Confirm re-runs the confirmation flow for a pending external order,
// e.g. after a restart lost the original worker task.
func (r *Router) Confirm(ctx context.Context, orderID string) {
	r.confirm(ctx, orderID)
}

// Redeem consumes a download token.
func (r *Router) Redeem(ctx context.Context, token string) (models.RedemptionToken, error) {
	return r.issuer.Redeem(ctx, token)
}
