// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"authflow_backend/internal/app"
	"authflow_backend/internal/auth"
	"authflow_backend/internal/config"
	"authflow_backend/internal/firebase"
	"authflow_backend/internal/jobs"
	"authflow_backend/internal/platform/database"
	"authflow_backend/internal/platform/logger"
	"authflow_backend/internal/profile"
	"authflow_backend/internal/session"
	"authflow_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,

		// Identity backends
		firebase.NewService,
		firebase.NewIdentityService,
		wire.Bind(new(session.IdentityProvider), new(*firebase.IdentityService)),
		profile.NewFirestoreStore,
		wire.Bind(new(session.ProfileStore), new(*profile.FirestoreStore)),

		// Session flows
		session.NewManager,

		// User mirror
		user.NewGORMRepository,
		user.NewService,

		// Auth
		auth.NewJWTService,
		auth.NewHandler,

		// Jobs
		jobs.NewFlowSweeperJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
