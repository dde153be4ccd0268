package main

import (
	"context"
	"database/sql"

	"github.com/attendrix/server/internal/attendrix/match"
	"github.com/attendrix/server/internal/attendrix/service"
	"github.com/attendrix/server/internal/attendrix/store"
	storesqlite "github.com/attendrix/server/internal/attendrix/store/sqlite"
	"github.com/attendrix/server/internal/config"
	"github.com/attendrix/server/internal/db"
	"github.com/attendrix/server/internal/logging"
)

// env wires the sqlite-backed stores and services for a command run.
type env struct {
	conn   *sql.DB
	writer *db.Worker

	attendance store.AttendanceStore
	registry   *service.UserRegistry
	index      *match.Index

	scans       *service.ScanService
	enrollments *service.EnrollmentService
}

func openEnv(ctx context.Context, cfg config.Config) (*env, error) {
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return nil, err
	}
	writer := db.NewWorker(conn)

	embeddings := storesqlite.NewEmbeddingStore(conn, writer)
	attendance := storesqlite.NewAttendanceStore(conn, writer)
	users := storesqlite.NewUserStore(conn, writer)

	registry := service.NewUserRegistry(users)
	index := match.NewIndex(embeddings)
	matcher := match.NewMatcher(index, match.Policy{
		AcceptThreshold: cfg.Matcher.AcceptThreshold,
		AmbiguityMargin: cfg.Matcher.AmbiguityMargin,
	})

	shiftStart, err := config.ParseTimeOfDay(cfg.Attendance.ShiftStart)
	if err != nil {
		conn.Close()
		return nil, err
	}
	cutoff, err := config.ParseTimeOfDay(cfg.Attendance.HalfDayCutoff)
	if err != nil {
		conn.Close()
		return nil, err
	}

	engine := service.NewRuleEngine(service.ShiftPolicy{
		ShiftStart:    shiftStart,
		GracePeriod:   cfg.Attendance.GracePeriod,
		HalfDayCutoff: cutoff,
		MinSeparation: cfg.Attendance.MinSeparation,
		MinFullDay:    cfg.Attendance.MinFullDay,
	})

	scans := service.NewScanService(matcher, registry, attendance, engine, service.ScanServiceConfig{
		Location:    cfg.Location(),
		LockTimeout: cfg.Attendance.LockTimeout,
	}, logging.L)

	enrollments := service.NewEnrollmentService(embeddings, registry, index, logging.L)

	return &env{
		conn:        conn,
		writer:      writer,
		attendance:  attendance,
		registry:    registry,
		index:       index,
		scans:       scans,
		enrollments: enrollments,
	}, nil
}

func (e *env) Close() {
	e.writer.Close()
	_ = e.conn.Close()
}
