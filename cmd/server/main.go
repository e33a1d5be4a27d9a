package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kamathanirudh/labstack/internal/api"
	"github.com/kamathanirudh/labstack/internal/compute"
	"github.com/kamathanirudh/labstack/internal/config"
	"github.com/kamathanirudh/labstack/internal/events"
	"github.com/kamathanirudh/labstack/internal/lab"
	"github.com/kamathanirudh/labstack/internal/provision"
	"github.com/kamathanirudh/labstack/internal/store"
	"github.com/kamathanirudh/labstack/internal/template"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	registry, err := template.Load(cfg.TemplatesFile)
	if err != nil {
		log.Fatalf("labstack: invalid template definitions: %v", err)
	}
	log.Printf("labstack: %d lab templates loaded", len(registry.List()))

	if cfg.AMI == "" || cfg.SubnetID == "" || cfg.SecurityGroupID == "" {
		log.Fatalf("labstack: LABSTACK_AMI, LABSTACK_SUBNET_ID and LABSTACK_SECURITY_GROUP_ID are required")
	}

	ec2api, err := compute.NewEC2(compute.EC2Config{
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		AMI:             cfg.AMI,
		InstanceType:    cfg.InstanceType,
		SubnetID:        cfg.SubnetID,
		SecurityGroupID: cfg.SecurityGroupID,
		KeyName:         cfg.KeyName,
	})
	if err != nil {
		log.Fatalf("labstack: failed to initialize EC2 client: %v", err)
	}

	var records store.RecordStore
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("labstack: failed to connect to database: %v", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("labstack: failed to run migrations: %v", err)
		}
		log.Println("labstack: using PostgreSQL record store")
		records = pg
	case cfg.RedisURL != "":
		rds, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("labstack: failed to connect to redis: %v", err)
		}
		log.Println("labstack: using Redis record store")
		records = rds
	default:
		lite, err := store.NewSQLite(cfg.DataDir)
		if err != nil {
			log.Fatalf("labstack: failed to open sqlite store: %v", err)
		}
		log.Printf("labstack: using SQLite record store in %s", cfg.DataDir)
		records = lite
	}
	defer records.Close()

	var opts []lab.Option
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			log.Printf("labstack: NATS unavailable, lifecycle events disabled: %v", err)
		} else {
			defer publisher.Close()
			log.Println("labstack: NATS lifecycle events enabled")
			opts = append(opts, lab.WithEvents(publisher))
		}
	}

	controller := lab.NewController(provision.New(registry, ec2api), records, ec2api, opts...)

	if cfg.SweepInterval > 0 {
		sweeper := lab.NewSweeper(controller, records, cfg.SweepInterval)
		sweeper.Start()
		defer sweeper.Stop()
		log.Printf("labstack: reconciliation sweep every %v", cfg.SweepInterval)
	}

	srv := api.NewServer(controller, registry, cfg.DefaultTTLMinutes)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			log.Fatalf("labstack: server error: %v", err)
		}
	}()
	log.Printf("labstack: listening on :%d (region %s, instance type %s)", cfg.Port, cfg.Region, cfg.InstanceType)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("labstack: shutting down")
	if err := srv.Close(); err != nil {
		log.Printf("labstack: shutdown error: %v", err)
	}
}
