package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/admin"
	"github.com/mcdev12/auctionroom/go/internal/auction/gateway"
	"github.com/mcdev12/auctionroom/go/internal/auction/persistence"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Manager *room.Manager
	Gateway *gateway.Gateway
	Admin   *admin.Service
	Writer  *persistence.Writer

	closers []func() error
}

func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	s := &Services{}
	// Wire up dependency injection chain
	// Backends → Store → Writer → Room manager → Gateway / Admin

	var (
		stores    persistence.MultiStore
		pg        *persistence.PostgresStore
		snapshots persistence.SnapshotChain
		results   admin.ResultsSource
	)

	if cfg.Database != nil {
		db, err := setupDatabase(ctx, *cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)

		pg, err = setupPostgresStore(ctx, db)
		if err != nil {
			s.close()
			return nil, err
		}
		stores = append(stores, pg)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			s.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)

		cache := persistence.NewSnapshotCache(client, cfg.RedisPrefix, cfg.SnapshotTTL)
		stores = append(stores, cache)
		snapshots = append(snapshots, cache)
		results = cache
		log.Info().Str("addr", cfg.RedisAddr).Msg("snapshot cache enabled")
	}

	if cfg.NATSURL != "" {
		pubCfg := persistence.DefaultPublisherConfig()
		pubCfg.URL = cfg.NATSURL
		pub, err := persistence.NewEventPublisher(ctx, pubCfg)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, pub.Close)
		stores = append(stores, pub)
		log.Info().Str("url", cfg.NATSURL).Str("stream", pubCfg.StreamName).Msg("event publisher enabled")
	}

	var store persistence.Store = persistence.LogStore{}
	switch len(stores) {
	case 0:
		log.Warn().Msg("no persistence backend configured, logging only")
	case 1:
		store = stores[0]
	default:
		store = stores
	}
	s.Writer = persistence.NewWriter(store, persistence.DefaultConfig(), nil)

	cat, err := loadCatalogue(ctx, cfg.CataloguePath, pg)
	if err != nil {
		s.close()
		return nil, err
	}

	s.Manager, err = room.NewManager(cfg.Room, cat, room.WithManagerRecorder(s.Writer))
	if err != nil {
		s.close()
		return nil, err
	}
	// the cache answers first; Postgres keeps snapshots past the cache TTL
	if pg != nil {
		snapshots = append(snapshots, pg)
	}
	var source gateway.SnapshotSource
	if len(snapshots) > 0 {
		source = snapshots
	}
	s.Gateway = gateway.NewGateway(s.Manager, source, gateway.DefaultConfig())
	s.Admin = admin.NewService(s.Manager, results)
	return s, nil
}

func setupPostgresStore(ctx context.Context, db *sql.DB) (*persistence.PostgresStore, error) {
	pg := persistence.NewPostgresStore(db)
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pg.EnsureSchema(schemaCtx); err != nil {
		return nil, err
	}
	return pg, nil
}

// loadCatalogue prefers an explicit file, then the database, then the
// built-in catalogue
func loadCatalogue(ctx context.Context, path string, pg *persistence.PostgresStore) (catalogue.Catalogue, error) {
	if path != "" {
		cat, err := catalogue.Load(path)
		if err != nil {
			return catalogue.Catalogue{}, err
		}
		log.Info().Str("path", path).Int("items", len(cat.Items)).Msg("catalogue loaded from file")
		return cat, nil
	}

	if pg != nil {
		cat, err := pg.LoadCatalogue(ctx)
		switch {
		case err == nil:
			log.Info().Int("items", len(cat.Items)).Msg("catalogue loaded from database")
			return cat, nil
		case errors.Is(err, persistence.ErrNotFound):
			log.Info().Msg("database catalogue is empty, using built-in catalogue")
		default:
			return catalogue.Catalogue{}, err
		}
	}
	return catalogue.Default()
}

func (s *Services) Start(ctx context.Context) error {
	// the writer outlives ctx so Shutdown can drain it
	if err := s.Writer.Start(context.Background()); err != nil {
		return err
	}
	s.Manager.Start(ctx)
	return nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	s.Gateway.Shutdown()
	err := s.Manager.Shutdown(ctx)
	if stopErr := s.Writer.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	return errors.Join(err, s.close())
}

func (s *Services) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
