package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/webshop-ops/freefinance-bridge/internal/events"
	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
	kafkax "github.com/webshop-ops/freefinance-bridge/internal/kafka"
	"github.com/webshop-ops/freefinance-bridge/internal/magento"
	"github.com/webshop-ops/freefinance-bridge/internal/redisx"
	"github.com/webshop-ops/freefinance-bridge/internal/region"
)

// OrderSource is satisfied by the Magento client.
type OrderSource interface {
	ResolveEntityID(ctx context.Context, entityID int, incrementID string) (int, error)
	FetchOrder(ctx context.Context, entityID int) (*magento.Order, error)
}

// AccountingAPI is the slice of the FreeFinance client the pipeline uses
// beyond customer reconciliation.
type AccountingAPI interface {
	Refresh(ctx context.Context) (string, error)
	Items(ctx context.Context) ([]freefinance.Item, error)
	CreateInvoice(ctx context.Context, inv freefinance.Invoice) (freefinance.Invoice, error)
}

type AuditLog interface {
	RecordRun(ctx context.Context, eventID, incrementID, invoiceID, runErr string) error
}

// DedupStore remembers which events already ran to completion.
type DedupStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Service runs one invoicing pipeline per InvoiceRequested event:
// refresh token, fetch order, map, reconcile customer, submit invoice.
type Service struct {
	Orders      OrderSource
	Accounting  AccountingAPI
	Reconciler  *Reconciler
	Mapper      *Mapper
	Regions     region.Resolver
	Dedup       DedupStore
	Audit       AuditLog
	ServiceName string
	Log         zerolog.Logger
}

// HandleInvoiceRequested is mounted as the Kafka consumer handler.
// Returning an error leaves the offset uncommitted, so the broker
// redelivers; terminal failures are audited and committed instead.
func (s *Service) HandleInvoiceRequested(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventInvoiceRequested {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if done, _ := s.Dedup.Seen(ctx, dkey); done {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.InvoiceRequestedPayload](env.Payload)
	if err != nil {
		return err
	}

	log := s.Log.With().Str("event_id", env.EventID).Str("increment_id", p.IncrementID).Logger()

	incrementID, invoiceID, err := s.run(ctx, p)
	if err != nil {
		if audErr := s.Audit.RecordRun(ctx, env.EventID, incrementID, "", err.Error()); audErr != nil {
			log.Error().Err(audErr).Msg("audit write failed")
		}
		if terminal(err) {
			log.Error().Err(err).Msg("invoice run failed terminally")
			_ = s.Dedup.Mark(ctx, dkey)
			return nil
		}
		log.Error().Err(err).Msg("invoice run failed, will be redelivered")
		return err
	}

	if audErr := s.Audit.RecordRun(ctx, env.EventID, incrementID, invoiceID, ""); audErr != nil {
		log.Error().Err(audErr).Msg("audit write failed")
	}
	_ = s.Dedup.Mark(ctx, dkey)
	log.Info().Str("invoice_id", invoiceID).Msg("invoice created")
	return nil
}

func (s *Service) run(ctx context.Context, p events.InvoiceRequestedPayload) (incrementID, invoiceID string, err error) {
	if _, err = s.Accounting.Refresh(ctx); err != nil {
		return "", "", err
	}

	entityID, err := s.Orders.ResolveEntityID(ctx, p.EntityID, p.IncrementID)
	if err != nil {
		return p.IncrementID, "", err
	}
	order, err := s.Orders.FetchOrder(ctx, entityID)
	if err != nil {
		return p.IncrementID, "", err
	}

	regionCode, regionErr := s.resolveRegion(ctx, order)

	customer, err := s.Reconciler.Reconcile(ctx, s.Mapper.CustomerDraft(order, regionCode))
	if err != nil {
		return order.IncrementID, "", err
	}

	catalog, err := s.Accounting.Items(ctx)
	if err != nil {
		return order.IncrementID, "", err
	}

	inv := s.Mapper.Invoice(time.Now(), order, customer.ID, catalog, p.OrderComment, regionErr)
	submitted, err := s.Accounting.CreateInvoice(ctx, inv)
	if err != nil {
		return order.IncrementID, "", err
	}
	return order.IncrementID, submitted.ID, nil
}

// resolveRegion asks the configured resolver for a region id. A genuine
// miss turns into a note on the invoice description; any other failure is
// logged and the invoice proceeds without a region.
func (s *Service) resolveRegion(ctx context.Context, order *magento.Order) (code, errText string) {
	bill := order.BillingAddress
	if bill == nil || bill.Region == "" {
		return "", ""
	}
	code, err := s.Regions.Resolve(ctx, bill.CountryID, bill.Region)
	if err != nil {
		if errors.Is(err, region.ErrNotFound) {
			return "", fmt.Sprintf("The Region was not found or doesn't exist: %s", bill.Region)
		}
		s.Log.Warn().Err(err).Str("region", bill.Region).Msg("region resolution failed")
		return "", ""
	}
	return code, ""
}

// terminal reports whether redelivering the event could ever succeed.
func terminal(err error) bool {
	return errors.Is(err, magento.ErrMissingIdentifier) ||
		errors.Is(err, magento.ErrOrderNotFound)
}
