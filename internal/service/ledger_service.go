package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"giftbook/internal/domain"
	"giftbook/internal/repository"
	"giftbook/internal/storage"
)

const (
	maxAmountIntegerDigits = 12
	maxAmountScale         = 2
	// trailing zeros such as 100.000 are tolerated up to this many places
	maxAmountExponentScale = 18

	clearArchiveAttempts = 3
)

// AddGiftInput carries a new gift. Amount is a pointer so that an absent
// value can be told apart from zero.
type AddGiftInput struct {
	Name   string
	Amount *decimal.Decimal
	Type   string
	Remark string
}

// LedgerService exposes gift operations scoped to the caller's default event.
type LedgerService interface {
	List(ctx context.Context, userID int64) ([]domain.Gift, error)
	Add(ctx context.Context, userID int64, in AddGiftInput) (*domain.Gift, error)
	Delete(ctx context.Context, userID, giftID int64) error
	Clear(ctx context.Context, userID int64) error
}

// LedgerConfig wires optional collaborators of the ledger.
type LedgerConfig struct {
	// Archiver, when set, receives a CSV snapshot of a ledger before Clear
	// deletes it.
	Archiver      storage.Archiver
	ArchivePrefix string
	Logger        *logrus.Logger
}

type ledgerService struct {
	cfg    LedgerConfig
	events EventService
	gifts  repository.GiftRepository
	tx     repository.TxRunner
}

func NewLedgerService(cfg LedgerConfig, events EventService, gifts repository.GiftRepository, tx repository.TxRunner) LedgerService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &ledgerService{
		cfg:    cfg,
		events: events,
		gifts:  gifts,
		tx:     tx,
	}
}

func (s *ledgerService) List(ctx context.Context, userID int64) ([]domain.Gift, error) {
	eventID, err := s.events.ResolveDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.gifts.ListByEvent(ctx, eventID)
}

func (s *ledgerService) Add(ctx context.Context, userID int64, in AddGiftInput) (*domain.Gift, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Amount == nil {
		return nil, ErrGiftFieldsRequired
	}
	if err := validateAmount(*in.Amount); err != nil {
		return nil, err
	}
	giftType := strings.TrimSpace(in.Type)
	if giftType == "" {
		giftType = domain.DefaultGiftType
	}

	eventID, err := s.events.ResolveDefault(ctx, userID)
	if err != nil {
		return nil, err
	}

	gift := &domain.Gift{
		EventID: eventID,
		Name:    name,
		Amount:  *in.Amount,
		Type:    giftType,
		Remark:  in.Remark,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Gifts.Create(ctx, gift); err != nil {
			return err
		}
		action := fmt.Sprintf("新增礼金记录：%s - %s元", gift.Name, gift.Amount.String())
		return recordAction(ctx, repos.Logs, userID, eventID, action)
	})
	if err != nil {
		return nil, err
	}
	return gift, nil
}

func (s *ledgerService) Delete(ctx context.Context, userID, giftID int64) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		owned, err := repos.Gifts.GetWithOwner(ctx, giftID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrGiftNotFound
			}
			return err
		}
		if owned.OwnerID != userID {
			return ErrForbidden
		}

		if err := repos.Gifts.Delete(ctx, giftID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrGiftNotFound
			}
			return err
		}
		return recordAction(ctx, repos.Logs, userID, owned.EventID, fmt.Sprintf("删除礼金记录ID：%d", giftID))
	})
}

func (s *ledgerService) Clear(ctx context.Context, userID int64) error {
	event, err := s.events.FindDefault(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoEvent
		}
		return err
	}

	if s.cfg.Archiver == nil {
		return s.clearEvent(ctx, userID, event.ID, nil, "")
	}

	// The upload runs outside the transaction so the store stays available
	// while the bucket is slow. The delete then only goes ahead if the
	// ledger still holds exactly the archived gifts.
	for attempt := 1; attempt <= clearArchiveAttempts; attempt++ {
		gifts, err := s.gifts.ListByEvent(ctx, event.ID)
		if err != nil {
			return err
		}
		if len(gifts) == 0 {
			return ErrLedgerEmpty
		}

		location, err := s.archive(ctx, userID, event.ID, gifts)
		if err != nil {
			return err
		}

		err = s.clearEvent(ctx, userID, event.ID, gifts, location)
		if !errors.Is(err, ErrLedgerChanged) {
			return err
		}
		s.cfg.Logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"event_id": event.ID,
			"attempt":  attempt,
			"location": location,
		}).Warn("ledger changed while archiving, snapshot discarded")
	}
	return ErrLedgerChanged
}

// clearEvent deletes every gift of the event and records the action. With a
// non-nil archived list it fails with ErrLedgerChanged unless the stored
// gifts are exactly the archived ones.
func (s *ledgerService) clearEvent(ctx context.Context, userID, eventID int64, archived []domain.Gift, location string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		gifts, err := repos.Gifts.ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if len(gifts) == 0 {
			return ErrLedgerEmpty
		}

		action := "清空所有礼金记录"
		if archived != nil {
			if !sameGifts(gifts, archived) {
				return ErrLedgerChanged
			}
			action += "（已归档：" + location + "）"
		}

		if _, err := repos.Gifts.DeleteByEvent(ctx, eventID); err != nil {
			return err
		}
		return recordAction(ctx, repos.Logs, userID, eventID, action)
	})
}

func sameGifts(a, b []domain.Gift) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func (s *ledgerService) archive(ctx context.Context, userID, eventID int64, gifts []domain.Gift) (string, error) {
	var buf bytes.Buffer
	if err := storage.WriteSnapshot(&buf, gifts); err != nil {
		return "", err
	}

	key := storage.SnapshotKey(s.cfg.ArchivePrefix, userID, eventID, time.Now())
	location, err := s.cfg.Archiver.Put(ctx, key, &buf, storage.SnapshotContentType)
	if err != nil {
		return "", fmt.Errorf("archive ledger: %w", err)
	}

	s.cfg.Logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"event_id": eventID,
		"gifts":    len(gifts),
		"location": location,
	}).Info("ledger archived before clear")
	return location, nil
}

// validateAmount bounds amounts to currency values. The exponent is checked
// before anything that scales the coefficient, so inputs like 1e400000 are
// rejected without being expanded.
func validateAmount(amount decimal.Decimal) error {
	exp := amount.Exponent()
	if exp > maxAmountIntegerDigits || exp < -maxAmountExponentScale {
		return ErrInvalidAmount
	}
	if int(exp)+amount.NumDigits() > maxAmountIntegerDigits {
		return ErrInvalidAmount
	}
	if !amount.Round(maxAmountScale).Equal(amount) {
		return ErrInvalidAmount
	}
	return nil
}
