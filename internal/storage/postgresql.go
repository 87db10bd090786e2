// Package storage реализует хранилище данных на основе PostgreSQL:
// леджер операций (история мини-приложения), заявки на вывод средств
// и отметки времени последнего вывода на карту.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// AppendLedgerEntry добавляет запись леджера и возвращает её ID.
func (s *Storage) AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (int64, error) {
	const op = "storage.AppendLedgerEntry"

	query := `INSERT INTO ledger_entries (telegram_id, kind, title, amount, created_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		entry.TelegramID, entry.Kind, entry.Title, entry.Amount, createdAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListLedgerEntries возвращает историю операций пользователя, новые сверху.
func (s *Storage) ListLedgerEntries(ctx context.Context, telegramID int64, limit int) ([]models.LedgerEntry, error) {
	const op = "storage.ListLedgerEntries"

	query := `SELECT id, telegram_id, kind, title, amount, created_at
			  FROM ledger_entries
			  WHERE telegram_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TelegramID, &e.Kind, &e.Title, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateWithdrawalTicket сохраняет заявку на асинхронный вывод средств.
func (s *Storage) CreateWithdrawalTicket(ctx context.Context, ticket models.WithdrawalTicket) error {
	const op = "storage.CreateWithdrawalTicket"

	query := `INSERT INTO withdrawal_tickets
				(id, telegram_id, amount, method, phone, bank, crypto_net, crypto_addr, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.DB.ExecContext(ctx, query,
		ticket.ID, ticket.TelegramID, ticket.Amount, string(ticket.Method),
		ticket.Phone, ticket.Bank, ticket.CryptoNet, ticket.CryptoAddr, ticket.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LastCardWithdraw возвращает время последнего подтверждённого вывода
// на карту; found=false, если выводов ещё не было.
func (s *Storage) LastCardWithdraw(ctx context.Context, telegramID int64) (time.Time, bool, error) {
	const op = "storage.LastCardWithdraw"

	query := `SELECT last_withdraw_at FROM card_withdraw_stamps WHERE telegram_id = $1`
	var stamp time.Time
	err := s.DB.QueryRowContext(ctx, query, telegramID).Scan(&stamp)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return stamp, true, nil
}

// StampCardWithdraw фиксирует время подтверждённого вывода на карту.
func (s *Storage) StampCardWithdraw(ctx context.Context, telegramID int64, at time.Time) error {
	const op = "storage.StampCardWithdraw"

	query := `INSERT INTO card_withdraw_stamps (telegram_id, last_withdraw_at)
			  VALUES ($1, $2)
			  ON CONFLICT (telegram_id) DO UPDATE SET last_withdraw_at = EXCLUDED.last_withdraw_at`
	_, err := s.DB.ExecContext(ctx, query, telegramID, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
