package handlers

import (
	"context"

	"github.com/PocketRelay/Server-sub000/internal/model"
)

// PlayerStore is the narrow persistence collaborator handlers depend on,
// satisfied by internal/persistence.PlayerRepository. Kept here (rather than in
// internal/persistence) so handlers never import the concrete driver
// package — only the shape it must conform to.
type PlayerStore interface {
	PlayerByID(ctx context.Context, id int32) (*model.Player, error)
	PlayerByEmail(ctx context.Context, email string) (*model.Player, error)
	PlayerCreate(ctx context.Context, email, displayName string, passwordHash *string) (*model.Player, error)
	PlayerSetPassword(ctx context.Context, id int32, passwordHash string) error
	PlayerSetRole(ctx context.Context, id int32, role model.Role) error
	PlayerSetDetails(ctx context.Context, id int32, displayName string) error
	PlayerDataAll(ctx context.Context, id int32) (map[string]string, error)
	PlayerDataGet(ctx context.Context, id int32, key string) (string, bool, error)
	PlayerDataSet(ctx context.Context, id int32, key, value string) error
	PlayerDataDelete(ctx context.Context, id int32, key string) error
	GalaxyAtWarGet(ctx context.Context, id int32) (GalaxyAtWar, error)
}

// GalaxyAtWar is the four-region readiness rating persisted per player,
// returned by PlayerStore.GalaxyAtWarGet.
type GalaxyAtWar struct {
	Level          int32
	LevelDecay     int32
	FootballLevel  int32 // N7 Favor readiness, named after the source's "Football" working name
	AllianceLevel  int32
	CerberusLevel  int32
}

// Retriever is the upstream-origin collaborator used only during
// OriginLogin, satisfied by internal/retriever.Client.
type Retriever interface {
	OriginAuthenticate(ctx context.Context, token string) (email, displayName string, err error)
	OriginGetSettings(ctx context.Context) (map[string]string, error)
}

// LegalContent is the static-content collaborator for the legal-document
// and coalesced-config commands, satisfied by internal/staticcontent.Store.
type LegalContent interface {
	TermsOfService() string
	PrivacyPolicy() string
	CoalescedChunks() (chunks map[string]string, chunkSize, dataSize int)
}
