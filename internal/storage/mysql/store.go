// Package mysql implements the storage.Store contract on top of MySQL.
// Every ChangeSet commit runs inside a single transaction so the ledger
// invariant can never be observed half-applied.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// Ensure MySQLStore implements storage.Store.
var _ storage.Store = (*MySQLStore)(nil)

// MySQLStore is the production ledger store.
type MySQLStore struct {
	db *sql.DB
}

// New wraps an open database handle and bootstraps the schema.
func New(db *sql.DB) (*MySQLStore, error) {
	if err := bootstrap(db); err != nil {
		return nil, fmt.Errorf("schema bootstrap: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *MySQLStore) Close() error { return s.db.Close() }

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// ----- users -----

// UpsertUser inserts a user keyed by telegram_id or refreshes the profile
// fields of an existing one, then reads the row back to populate IDs and
// timestamps.
func (s *MySQLStore) UpsertUser(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (telegram_id, username, avatar_url) VALUES (?,?,?)
		ON DUPLICATE KEY UPDATE username=VALUES(username), avatar_url=VALUES(avatar_url)`
	if _, err := s.db.ExecContext(ctx, q, u.TelegramID, u.Username, u.AvatarURL); err != nil {
		return err
	}
	stored, err := s.GetUserByTelegramID(ctx, u.TelegramID)
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

func (s *MySQLStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, avatar_url, created_at, updated_at FROM users WHERE id=?`, id))
}

func (s *MySQLStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, avatar_url, created_at, updated_at FROM users WHERE telegram_id=?`, telegramID))
}

func (s *MySQLStore) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ----- bills -----

// CreateBill inserts the bill and, when ownerSeat is non-nil, the owner's
// participant row in the same transaction. Generated IDs are written back
// into the records.
func (s *MySQLStore) CreateBill(ctx context.Context, bill *model.Bill, ownerSeat *model.BillParticipant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bills (owner_id, total_sum, unallocated_sum, title, payment_details, split_mode, status)
		 VALUES (?,?,?,?,?,?,?)`,
		bill.OwnerID, bill.TotalSum, bill.UnallocatedSum, bill.Title, bill.PaymentDetails,
		string(bill.SplitMode), string(bill.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	bill.ID = id

	if ownerSeat != nil {
		ownerSeat.BillID = id
		res, err = tx.ExecContext(ctx,
			`INSERT INTO bills_users (bill_id, user_id, guest_name, allocated_amount, is_paid)
			 VALUES (?,?,?,?,?)`,
			ownerSeat.BillID, ownerSeat.UserID, ownerSeat.GuestName, ownerSeat.AllocatedAmount, ownerSeat.IsPaid)
		if err != nil {
			return err
		}
		if ownerSeat.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetBill(ctx context.Context, id int64) (*model.Bill, error) {
	var b model.Bill
	var mode, status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, total_sum, unallocated_sum, title, payment_details, split_mode, status, created_at, updated_at
		 FROM bills WHERE id=?`, id).
		Scan(&b.ID, &b.OwnerID, &b.TotalSum, &b.UnallocatedSum, &b.Title, &b.PaymentDetails,
			&mode, &status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}
	b.SplitMode = model.SplitMode(mode)
	b.Status = model.BillStatus(status)
	return &b, nil
}

// ListUserBills returns bills the user owns or sits on, newest first, each
// with its participant count resolved by a correlated subquery.
func (s *MySQLStore) ListUserBills(ctx context.Context, userID int64, offset, limit int) ([]storage.BillSummary, error) {
	const q = `SELECT b.id, b.owner_id, b.total_sum, b.unallocated_sum, b.title, b.payment_details,
			b.split_mode, b.status, b.created_at, b.updated_at,
			(SELECT COUNT(*) FROM bills_users bc WHERE bc.bill_id = b.id) AS participants
		FROM bills b
		WHERE b.owner_id = ?
		   OR EXISTS (SELECT 1 FROM bills_users bu WHERE bu.bill_id = b.id AND bu.user_id = ?)
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, userID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.BillSummary
	for rows.Next() {
		var sum storage.BillSummary
		var mode, status string
		b := &sum.Bill
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.TotalSum, &b.UnallocatedSum, &b.Title, &b.PaymentDetails,
			&mode, &status, &b.CreatedAt, &b.UpdatedAt, &sum.ParticipantCount); err != nil {
			return nil, err
		}
		b.SplitMode = model.SplitMode(mode)
		b.Status = model.BillStatus(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ----- participants -----

const participantCols = `id, bill_id, user_id, guest_name, allocated_amount, is_paid, created_at`

func scanParticipant(scan func(dest ...any) error) (*model.BillParticipant, error) {
	var p model.BillParticipant
	var userID sql.NullInt64
	err := scan(&p.ID, &p.BillID, &userID, &p.GuestName, &p.AllocatedAmount, &p.IsPaid, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := userID.Int64
		p.UserID = &uid
	}
	return &p, nil
}

// GetParticipants returns all seats of a bill in insertion order; split
// iteration order relies on it.
func (s *MySQLStore) GetParticipants(ctx context.Context, billID int64) ([]*model.BillParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+participantCols+` FROM bills_users WHERE bill_id=? ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BillParticipant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *MySQLStore) GetParticipant(ctx context.Context, id int64) (*model.BillParticipant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantCols+` FROM bills_users WHERE id=?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MySQLStore) GetParticipantByUser(ctx context.Context, billID, userID int64) (*model.BillParticipant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantCols+` FROM bills_users WHERE bill_id=? AND user_id=?`, billID, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ----- items -----

func (s *MySQLStore) CreateItem(ctx context.Context, item *model.BillItem) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bill_items (bill_id, name, price, count, item_sum, assigned_to_user_id)
		 VALUES (?,?,?,?,?,?)`,
		item.BillID, item.Name, item.Price, item.Count, item.ItemSum, item.AssignedToUserID)
	if err != nil {
		return err
	}
	item.ID, err = res.LastInsertId()
	return err
}

const itemCols = `id, bill_id, name, price, count, item_sum, assigned_to_user_id, created_at`

func scanItem(scan func(dest ...any) error) (*model.BillItem, error) {
	var it model.BillItem
	var assignee sql.NullInt64
	err := scan(&it.ID, &it.BillID, &it.Name, &it.Price, &it.Count, &it.ItemSum, &assignee, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		uid := assignee.Int64
		it.AssignedToUserID = &uid
	}
	return &it, nil
}

func (s *MySQLStore) GetItems(ctx context.Context, billID int64) ([]*model.BillItem, error) {
	return s.queryItems(ctx, `SELECT `+itemCols+` FROM bill_items WHERE bill_id=? ORDER BY id`, billID)
}

func (s *MySQLStore) GetItemsByAssignee(ctx context.Context, billID, userID int64) ([]*model.BillItem, error) {
	return s.queryItems(ctx,
		`SELECT `+itemCols+` FROM bill_items WHERE bill_id=? AND assigned_to_user_id=? ORDER BY id`,
		billID, userID)
}

func (s *MySQLStore) queryItems(ctx context.Context, q string, args ...any) ([]*model.BillItem, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BillItem
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *MySQLStore) GetItem(ctx context.Context, id int64) (*model.BillItem, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemCols+` FROM bill_items WHERE id=?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *MySQLStore) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bill_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrItemNotFound
	}
	return nil
}

// ----- atomic commit -----

// Commit applies one ChangeSet in a single transaction. Order of
// application: item unassignments, bill field updates, allocation and
// paid-flag updates, inserts, deletes. Any failure rolls back the whole
// set.
func (s *MySQLStore) Commit(ctx context.Context, cs *storage.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if cs.UnassignItemsOfUser != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bill_items SET assigned_to_user_id=NULL WHERE bill_id=? AND assigned_to_user_id=?`,
			cs.BillID, *cs.UnassignItemsOfUser); err != nil {
			return err
		}
	}

	if f := cs.Bill; f != nil {
		sets := make([]string, 0, 3)
		args := make([]any, 0, 4)
		if f.UnallocatedSum != nil {
			sets = append(sets, "unallocated_sum=?")
			args = append(args, *f.UnallocatedSum)
		}
		if f.SplitMode != nil {
			sets = append(sets, "split_mode=?")
			args = append(args, string(*f.SplitMode))
		}
		if f.Status != nil {
			sets = append(sets, "status=?")
			args = append(args, string(*f.Status))
		}
		if len(sets) > 0 {
			args = append(args, cs.BillID)
			if _, err := tx.ExecContext(ctx,
				`UPDATE bills SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...); err != nil {
				return err
			}
		}
	}

	for id, amount := range cs.Allocations {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bills_users SET allocated_amount=? WHERE id=? AND bill_id=?`,
			amount, id, cs.BillID); err != nil {
			return err
		}
	}

	for id, paid := range cs.PaidFlags {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bills_users SET is_paid=? WHERE id=? AND bill_id=?`,
			paid, id, cs.BillID); err != nil {
			return err
		}
	}

	for _, p := range cs.AddParticipants {
		p.BillID = cs.BillID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO bills_users (bill_id, user_id, guest_name, allocated_amount, is_paid)
			 VALUES (?,?,?,?,?)`,
			p.BillID, p.UserID, p.GuestName, p.AllocatedAmount, p.IsPaid)
		if err != nil {
			if isDuplicateKey(err) {
				return storage.ErrDuplicateParticipant
			}
			return err
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	for _, id := range cs.RemoveParticipantIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bills_users WHERE id=? AND bill_id=?`, id, cs.BillID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
