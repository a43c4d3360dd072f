package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Options configures a database connection.
type Options struct {
	Driver          string // sqlite, mysql or postgres
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// LogLevel is one of silent, error, warn or info.
	LogLevel string
	Logger   *log.Logger
}

// Gorm is a Store backed by a SQL database.
type Gorm struct {
	db *gorm.DB
}

var _ Store = (*Gorm)(nil)

// Open connects to the database described by opts and migrates the schema.
func Open(opts Options) (*Gorm, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "mysql":
		dialector = mysql.Open(opts.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(opts.DSN)
	case "sqlite", "sqlite3", "":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	gl := gormlogger.Default.LogMode(gormlogger.Silent)
	if opts.Logger != nil {
		gl = newGormLogger(opts.Logger, parseGormLevel(opts.LogLevel))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return NewGorm(db)
}

// NewGorm wraps an open connection and migrates the schema.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(
		&TableRecord{},
		&SeatRecord{},
		&HandRecord{},
		&ActionRecord{},
		&PayoutRecord{},
		&Account{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

// DB exposes the underlying connection.
func (g *Gorm) DB() *gorm.DB { return g.db }

func (g *Gorm) CreateTable(ctx context.Context, t TableRecord) error {
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("table %s: %w", t.ID, ErrExists)
	}
	return nil
}

func (g *Gorm) Table(ctx context.Context, id string) (TableRecord, error) {
	var t TableRecord
	err := g.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (g *Gorm) Tables(ctx context.Context) ([]TableRecord, error) {
	var out []TableRecord
	err := g.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (g *Gorm) SetButton(ctx context.Context, tableID string, button, handCount int) error {
	return g.updateTable(ctx, tableID, map[string]any{"button": button, "hand_count": handCount})
}

func (g *Gorm) SetTableStatus(ctx context.Context, tableID, status string) error {
	return g.updateTable(ctx, tableID, map[string]any{"status": status})
}

func (g *Gorm) updateTable(ctx context.Context, id string, values map[string]any) error {
	res := g.db.WithContext(ctx).Model(&TableRecord{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return nil
}

func (g *Gorm) Seats(ctx context.Context, tableID string) ([]SeatRecord, error) {
	var out []SeatRecord
	err := g.db.WithContext(ctx).Where("table_id = ?", tableID).Order("seat_index").Find(&out).Error
	return out, err
}

func (g *Gorm) SaveSeat(ctx context.Context, s SeatRecord) error {
	return upsertSeat(g.db.WithContext(ctx), s)
}

func upsertSeat(tx *gorm.DB, s SeatRecord) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&s).Error
}

func (g *Gorm) BuyIn(ctx context.Context, s SeatRecord, amount int) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := debit(tx, s.PlayerID, amount); err != nil {
			return err
		}
		return upsertSeat(tx, s)
	})
}

func (g *Gorm) CashOut(ctx context.Context, tableID string, seat int) (int, error) {
	var stack int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s SeatRecord
		err := tx.Where("table_id = ? AND seat_index = ?", tableID, seat).First(&s).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seat %d at %s: %w", seat, tableID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := credit(tx, s.PlayerID, s.Stack); err != nil {
			return err
		}
		stack = s.Stack
		return tx.Where("table_id = ? AND seat_index = ?", tableID, seat).Delete(&SeatRecord{}).Error
	})
	return stack, err
}

func (g *Gorm) StartHand(ctx context.Context, h HandRecord) error {
	h.Payouts = nil
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&h)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("hand %s: %w", h.ID, ErrExists)
	}
	return nil
}

func (g *Gorm) AppendActions(ctx context.Context, actions []ActionRecord) error {
	if len(actions) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Create(&actions).Error
}

func (g *Gorm) FinishHand(ctx context.Context, h HandRecord, payouts []PayoutRecord, seats []SeatRecord) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&HandRecord{}).Where("id = ?", h.ID).Updates(map[string]any{
			"board":    h.Board,
			"pot":      h.Pot,
			"rake":     h.Rake,
			"status":   h.Status,
			"ended_at": h.EndedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("hand %s: %w", h.ID, ErrNotFound)
		}
		if len(payouts) > 0 {
			rows := make([]PayoutRecord, len(payouts))
			for i, p := range payouts {
				p.ID = 0
				p.HandID = h.ID
				rows[i] = p
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		for _, s := range seats {
			if err := upsertSeat(tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gorm) Hand(ctx context.Context, id string) (HandRecord, error) {
	var h HandRecord
	err := g.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("Payouts", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&h, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return h, fmt.Errorf("hand %s: %w", id, ErrNotFound)
	}
	return h, err
}

func (g *Gorm) OpenAccount(ctx context.Context, playerID string, initial int) (int, error) {
	var balance int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Account{PlayerID: playerID, Balance: initial}).Error; err != nil {
			return err
		}
		var err error
		balance, err = balanceOf(tx, playerID)
		return err
	})
	return balance, err
}

func (g *Gorm) Balance(ctx context.Context, playerID string) (int, error) {
	return balanceOf(g.db.WithContext(ctx), playerID)
}

func balanceOf(tx *gorm.DB, playerID string) (int, error) {
	var a Account
	err := tx.First(&a, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("account %s: %w", playerID, ErrNotFound)
	}
	return a.Balance, err
}

func (g *Gorm) Credit(ctx context.Context, playerID string, amount int) (int, error) {
	var balance int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = credit(tx, playerID, amount)
		return err
	})
	return balance, err
}

func credit(tx *gorm.DB, playerID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative credit %d", amount)
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Account{PlayerID: playerID}).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&Account{}).Where("player_id = ?", playerID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return 0, err
	}
	return balanceOf(tx, playerID)
}

func (g *Gorm) Debit(ctx context.Context, playerID string, amount int) (int, error) {
	var balance int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = debit(tx, playerID, amount)
		return err
	})
	return balance, err
}

func debit(tx *gorm.DB, playerID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative debit %d", amount)
	}
	res := tx.Model(&Account{}).
		Where("player_id = ? AND balance >= ?", playerID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("account %s: %w", playerID, ErrInsufficientBalance)
	}
	return balanceOf(tx, playerID)
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseGormLevel(s string) gormlogger.LogLevel {
	switch s {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// gormLogger routes GORM's logging through a charmbracelet logger.
type gormLogger struct {
	logger *log.Logger
	level  gormlogger.LogLevel
	slow   time.Duration
}

func newGormLogger(l *log.Logger, level gormlogger.LogLevel) *gormLogger {
	return &gormLogger{logger: l.WithPrefix("gorm"), level: level, slow: 200 * time.Millisecond}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Error("SQL failed", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn("Slow SQL", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug("SQL", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
