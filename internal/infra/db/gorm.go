package db

import (
	"fmt"
	"log/slog"
	"time"

	"canteen/internal/config"
	"canteen/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.DBConfig, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		// 一意制約違反を gorm.ErrDuplicatedKey にそろえる
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.Driver == "sqlite":
		// sqliteは書き込みが1本なので接続も1本にする
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if log != nil {
		log.Info("database connected", "driver", cfg.Driver)
	}
	return gdb, nil
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		// DATABASE_URL があれば最優先で使う
		if cfg.URL != "" {
			return postgres.Open(cfg.URL), nil
		}
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000&_foreign_keys=on"), nil
	}
	return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
}

// Migrate は全テーブルを作成・更新する。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(model.All()...)
}
