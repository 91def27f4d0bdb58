package registry

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/relaygate/database"
)

// instanceRecord is the registry_instances row. The heartbeat is kept as
// unix milliseconds so staleness cutoffs compare numerically.
type instanceRecord struct {
	Name            string `gorm:"primaryKey;size:255"`
	Address         string `gorm:"primaryKey;size:1024"`
	Status          string `gorm:"size:16;not null"`
	LastHeartbeatMs int64  `gorm:"index;not null"`
}

func (instanceRecord) TableName() string { return "registry_instances" }

func (r instanceRecord) instance() ServiceInstance {
	return ServiceInstance{
		Name:          r.Name,
		Address:       r.Address,
		Status:        Status(r.Status),
		LastHeartbeat: time.UnixMilli(r.LastHeartbeatMs).UTC(),
	}
}

// Models returns the gorm models the SQL store needs migrated.
func Models() []interface{} {
	return []interface{}{&instanceRecord{}}
}

// SQLStore keeps the registry in a SQLite table shared by every process that
// opens the same file. Each write is a single statement touching one key,
// so concurrent writers on different keys never overwrite each other.
type SQLStore struct {
	db      *database.DB
	opts    Options
	onClose func() error
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore migrates the instance table and returns a store over db.
// The store does not own db.
func NewSQLStore(db *database.DB, opts Options) (*SQLStore, error) {
	opts.applyDefaults()
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, database.FromDatabase(err)
	}
	return &SQLStore{db: db, opts: opts}, nil
}

func (s *SQLStore) nowMs() int64 {
	return s.opts.Now().UnixMilli()
}

func (s *SQLStore) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := s.db.Transaction(ctx, fn); err != nil {
		return database.FromDatabase(err)
	}
	return nil
}

func (s *SQLStore) Register(ctx context.Context, name, address string) error {
	address = NormalizeAddress(address)
	if err := validateKey(name, address); err != nil {
		return err
	}
	rec := instanceRecord{
		Name:            name,
		Address:         address,
		Status:          string(StatusUnknown),
		LastHeartbeatMs: s.nowMs(),
	}
	return s.write(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "last_heartbeat_ms"}),
		}).Create(&rec).Error
	})
}

func (s *SQLStore) UpdateStatus(ctx context.Context, name, address string, status Status) error {
	address = NormalizeAddress(address)
	return s.write(ctx, func(tx *gorm.DB) error {
		return tx.Model(&instanceRecord{}).
			Where("name = ? AND address = ?", name, address).
			Updates(map[string]interface{}{
				"status":            string(status),
				"last_heartbeat_ms": s.nowMs(),
			}).Error
	})
}

func (s *SQLStore) Heartbeat(ctx context.Context, name, address string) error {
	address = NormalizeAddress(address)
	return s.write(ctx, func(tx *gorm.DB) error {
		return tx.Model(&instanceRecord{}).
			Where("name = ? AND address = ?", name, address).
			Update("last_heartbeat_ms", s.nowMs()).Error
	})
}

func (s *SQLStore) Deregister(ctx context.Context, name, address string) error {
	address = NormalizeAddress(address)
	return s.write(ctx, func(tx *gorm.DB) error {
		return tx.Where("name = ? AND address = ?", name, address).
			Delete(&instanceRecord{}).Error
	})
}

func (s *SQLStore) List(ctx context.Context) ([]ServiceInstance, error) {
	var recs []instanceRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, database.FromDatabase(err)
	}
	out := make([]ServiceInstance, len(recs))
	for i, r := range recs {
		out[i] = r.instance()
	}
	return out, nil
}

func (s *SQLStore) Resolve(ctx context.Context, name string) (string, error) {
	var recs []instanceRecord
	err := s.db.WithContext(ctx).
		Where("name = ? AND status = ?", name, string(StatusUp)).
		Find(&recs).Error
	if err != nil {
		return "", database.FromDatabase(err)
	}
	candidates := make([]ServiceInstance, len(recs))
	for i, r := range recs {
		candidates[i] = r.instance()
	}
	return resolveFrom(candidates, name, s.opts.Now(), s.opts.StaleAfter, s.opts.Selector)
}

func (s *SQLStore) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.opts.Now().Add(-s.opts.StaleAfter).UnixMilli()
	var removed int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Where("last_heartbeat_ms < ?", cutoff).Delete(&instanceRecord{})
		removed = res.RowsAffected
		return res.Error
	})
	return int(removed), err
}

// Close runs the close hook installed by Open, if any.
func (s *SQLStore) Close() error {
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}
