// Package users provides account registration, role gating and user management
// for the accounts service.
//
// # Architecture
//
// The package follows a layered architecture:
//
//	┌──────────────────────────┐
//	│         Manager          │  ← Operation dispatch, events, login
//	├────────────┬─────────────┤
//	│ Registrar  │    Gate     │  ← Registration pipeline & role gate
//	├────────────┴─────────────┤
//	│ Validator │ Uniqueness   │  ← Field shape checks & duplicate lookups
//	├──────────────────────────┤
//	│   Store (Repository)     │  ← Data access layer
//	├──────────────────────────┤
//	│       GORM/SQLite        │  ← Database layer
//	└──────────────────────────┘
//
// # Registration
//
// A registration payload is checked in a fixed order and the first failure wins:
//
//   - all five fields present (full_name, phone, email, username, password)
//   - password at least six characters
//   - email, username and phone shapes
//   - email, username and phone not already taken, in that order
//
// The password is then hashed with bcrypt and the account is stored with the
// profile defaults (display picture, title, about, language, country) and the
// "user" role. The uniqueness lookups and the insert are not atomic; the unique
// indexes created by the repository reject a racing duplicate.
//
// # Roles
//
// Roles form a closed set: user, admin and super_admin. They are not ranked.
// Each gated operation names exactly the role it needs:
//
//   - listing users: super_admin
//   - updating a user: super_admin
//   - deleting a user: admin
//   - creating a user on someone's behalf: any authenticated caller
//
// A super_admin is therefore refused on delete, and an admin on list and update.
//
// # Quick Start
//
//	config := users.DefaultConfig()
//	config.JWTSecret = "your-secret-key"
//
//	repo, err := users.NewRepository(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	tokens := users.NewJWTTokens(config.JWTSecret, config.JWTExpirationTime, config.JWTIssuer, repo)
//	manager := users.NewManager(repo, users.NewBcryptHasher(config.BcryptCost), tokens)
//
//	_, err = manager.Register(ctx, users.RegistrationPayload{
//	    FullName: "Alice Doe",
//	    Phone:    "9876543210",
//	    Email:    "alice@example.com",
//	    Username: "alice",
//	    Password: "secret1",
//	})
//
//	login, err := manager.Login(ctx, "alice", "secret1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	users, err := manager.ListUsers(ctx, login.Token) // fails unless alice is super_admin
package users
