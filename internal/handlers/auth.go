package handlers

import (
	"context"
	"log/slog"
	"net/mail"

	"github.com/PocketRelay/Server-sub000/internal/directory"
	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
	"golang.org/x/crypto/bcrypt"
)

// authKind distinguishes the three AuthRequest variants, mirroring the
// client's TYPE discriminator (0=Login, 1=Origin, 2=Silent).
type authKind uint8

const (
	authKindLogin  authKind = 0
	authKindOrigin authKind = 1
	authKindSilent authKind = 2
)

// HandleLogin, HandleOriginLogin, and HandleSilentLogin converge on the same
// resolve-player/bind-session/mint-or-reuse-token/build-AuthResponse shape;
// each only differs in how it resolves the Player.
func HandleLogin(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	email, _ := body.GetString("MAI")
	password, _ := body.GetString("PAS")

	player, err := resolveLoginPlayer(ctx, req, email, password)
	if err != nil {
		return nil, err
	}
	return completeAuth(req, player, "", false)
}

func HandleOriginLogin(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	token, _ := body.GetString("AUT")

	player, err := resolveOriginPlayer(ctx, req, token)
	if err != nil {
		return nil, err
	}
	return completeAuth(req, player, "", true)
}

func HandleSilentLogin(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	token, _ := body.GetString("AUT")

	signer, err := router.MustService[*SessionSigner](req)
	if err != nil {
		return nil, err
	}
	playerID, verr := signer.Verify(token)
	if verr != nil {
		slog.Warn("rejected invalid session token on silent login", "session", req.Session.ID(), "error", verr)
		return nil, errs.New(errs.CodeInvalidSession)
	}

	store, err := router.MustService[PlayerStore](req)
	if err != nil {
		return nil, err
	}
	player, err := store.PlayerByID(ctx, playerID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, err)
	}
	if player == nil {
		return nil, errs.New(errs.CodeInvalidSession)
	}

	return completeAuth(req, player, token, true)
}

func resolveLoginPlayer(ctx context.Context, req *router.Request, email, password string) (*model.Player, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errs.New(errs.CodeInvalidEmail)
	}

	store, err := router.MustService[PlayerStore](req)
	if err != nil {
		return nil, err
	}
	player, err := store.PlayerByEmail(ctx, email)
	if err != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, err)
	}
	if player == nil {
		return nil, errs.New(errs.CodeEmailNotFound)
	}
	if player.IsUpstreamOrigin() {
		return nil, errs.New(errs.CodeInvalidAccount)
	}
	if bcrypt.CompareHashAndPassword([]byte(*player.PasswordHash), []byte(password)) != nil {
		return nil, errs.New(errs.CodeWrongPassword)
	}
	return player, nil
}

// resolveOriginPlayer authenticates with the upstream retriever, then
// looks up (or creates) a local Player by the returned email. A retriever
// failure degrades to ServerUnavailable — the collaborator contract treats
// the retriever as optional infrastructure, not a hard dependency, but an
// OriginLogin specifically has no other way to resolve an identity.
func resolveOriginPlayer(ctx context.Context, req *router.Request, token string) (*model.Player, error) {
	retriever, err := router.MustService[Retriever](req)
	if err != nil {
		return nil, err
	}
	email, displayName, rerr := retriever.OriginAuthenticate(ctx, token)
	if rerr != nil {
		slog.Warn("origin authentication failed", "error", rerr)
		return nil, errs.New(errs.CodeServerUnavailable)
	}

	store, err := router.MustService[PlayerStore](req)
	if err != nil {
		return nil, err
	}
	player, err := store.PlayerByEmail(ctx, email)
	if err != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, err)
	}
	if player != nil {
		return player, nil
	}

	// §9's resolution for a missing upstream account: "create account with
	// empty data" on any failure past this point.
	player, err = store.PlayerCreate(ctx, email, displayName, nil)
	if err != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, err)
	}

	settings, serr := retriever.OriginGetSettings(ctx)
	if serr != nil {
		slog.Warn("failed to load origin settings, leaving player data empty", "player", player.ID, "error", serr)
		return player, nil
	}
	for k, v := range settings {
		if err := store.PlayerDataSet(ctx, player.ID, k, v); err != nil {
			slog.Warn("failed to persist origin setting", "player", player.ID, "key", k, "error", err)
		}
	}
	return player, nil
}

// completeAuth binds player to the session, evicts any prior session bound
// to the same player id, mints (or reuses, for silentToken != "") a session
// token, and builds the AuthResponse body per §4.J.
func completeAuth(req *router.Request, player *model.Player, silentToken string, silent bool) (*tdf.Group, error) {
	if req.Session.SetPlayer(player) == nil {
		// first authentication on this connection: nothing to release
	}

	dir, err := router.MustService[*directory.Directory](req)
	if err != nil {
		return nil, err
	}
	dir.AddSession(player.ID, req.Session)

	token := silentToken
	if token == "" {
		signer, err := router.MustService[*SessionSigner](req)
		if err != nil {
			return nil, err
		}
		token = signer.Mint(player.ID)
	}
	req.Session.SetSessionToken(token)

	g := buildAuthResponse(player, token, silent)
	return &g, nil
}

// buildAuthResponse reproduces AuthResponse's two encodings (silent vs.
// interactive), grounded on the original's Encodable impl: a silent
// response nests a SESS group carrying the full persona snapshot, while an
// interactive response lists personas via PLST and closes with SKEY/UID.
func buildAuthResponse(player *model.Player, token string, silent bool) tdf.Group {
	b := tdf.NewBuilder()
	if silent {
		b.Zero("AGU") // AGUP truncated
	}
	b.StrEmpty("LDH") // LDHT
	b.Zero("NTO")     // NTOS
	b.Str("PCT", token)

	if silent {
		b.StrEmpty("PRI")
		b.Group("SES", func(sess *tdf.Builder) {
			sess.U32("BUI", uint32(player.ID))
			sess.Zero("FRS")
			sess.Str("KEY", token)
			sess.Zero("LLO")
			sess.Str("MAI", player.Email)
			sess.Group("PDT", func(pdt *tdf.Builder) { encodePersona(pdt, player) })
			sess.U32("UID", uint32(player.ID))
		})
	} else {
		b.GroupList("PLS", 1, func(i int, g *tdf.Builder) { encodePersona(g, player) })
		b.StrEmpty("PRI")
		b.Str("SKE", token)
	}

	b.Zero("SPA")
	b.StrEmpty("THS") // THST
	b.StrEmpty("TSU")
	b.StrEmpty("TUR")
	if !silent {
		b.U32("UID", uint32(player.ID))
	}
	return b.Build()
}

// encodePersona writes a mock single-persona snapshot using the player's
// display name and id, per the original's encode_persona.
func encodePersona(b *tdf.Builder, player *model.Player) {
	b.Str("DSN", player.DisplayName)
	b.Zero("LAS")
	b.U32("PID", uint32(player.ID))
	b.Zero("STA")
	b.Zero("XRE")
	b.Zero("XTY")
}

// HandleLogOut clears the authenticated player from the session. A logged
// out session remains connected; only its player binding is cleared.
func HandleLogOut(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if prev := req.Session.ClearPlayer(); prev != nil {
		dir, err := router.MustService[*directory.Directory](req)
		if err == nil {
			dir.RemoveSession(prev.ID, req.Session)
		}
	}
	return nil, nil
}

// HandleLoginPersona responds with the same mock single-persona snapshot
// AuthResponse carries, since this deployment doesn't implement a separate
// persona system.
func HandleLoginPersona(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}
	token := req.Session.SessionToken()

	b := tdf.NewBuilder()
	b.U32("BUI", uint32(player.ID))
	b.Zero("FRS")
	b.Str("KEY", token)
	b.Zero("LLO")
	b.Str("MAI", player.Email)
	b.Group("PDT", func(g *tdf.Builder) { encodePersona(g, player) })
	b.U32("UID", uint32(player.ID))
	g := b.Build()
	return &g, nil
}

// HandleCreateAccount creates a new local-password account and completes
// authentication exactly like a fresh Login.
func HandleCreateAccount(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	email, _ := body.GetString("MAI")
	password, _ := body.GetString("PAS")

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errs.New(errs.CodeInvalidEmail)
	}

	store, err := router.MustService[PlayerStore](req)
	if err != nil {
		return nil, err
	}
	if existing, err := store.PlayerByEmail(ctx, email); err != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, err)
	} else if existing != nil {
		return nil, errs.New(errs.CodeEmailAlreadyInUse)
	}

	hash, herr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if herr != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, herr)
	}
	hashStr := string(hash)
	player, cerr := store.PlayerCreate(ctx, email, email, &hashStr)
	if cerr != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, cerr)
	}

	return completeAuth(req, player, "", false)
}

// HandlePasswordForgot only validates the email and logs the request: this
// deployment never sends an actual reset email, matching the collaborator
// contract's scope.
func HandlePasswordForgot(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	email, _ := body.GetString("MAI")
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errs.New(errs.CodeInvalidEmail)
	}
	slog.Debug("password reset requested", "email", email)
	return nil, nil
}

// HandleGetAuthToken returns the session's current (minted-on-login)
// session token, reusing it rather than minting a second one.
func HandleGetAuthToken(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	b := tdf.NewBuilder().Str("AUT", req.Session.SessionToken())
	g := b.Build()
	return &g, nil
}

// HandleListUserEntitlements2 responds with the fixed ME3 entitlement set
// when the client requests the unfiltered tag; a non-empty tag means the
// client is asking about a narrower catalog this deployment doesn't model,
// so it gets an empty list instead of a guess.
func HandleListUserEntitlements2(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	tag, _ := body.GetString("ETA")

	b := tdf.NewBuilder()
	if tag != "" {
		b.GroupList("NLS", 0, func(i int, g *tdf.Builder) {})
		g := b.Build()
		return &g, nil
	}

	b.GroupList("NLS", len(fixedEntitlements), func(i int, g *tdf.Builder) {
		encodeEntitlement(g, fixedEntitlements[i])
	})
	g := b.Build()
	return &g, nil
}

type entitlement struct {
	id    uint64
	pjid  string
	prca  uint8
	prid  string
	tag   string
	typ   uint8
}

// fixedEntitlements is a representative subset of the client's well-known
// entitlement catalog (online-access passes and singleplayer DLC unlocks);
// the full catalog is a long hardcoded list in the source this isn't
// attempting to reproduce verbatim.
var fixedEntitlements = []entitlement{
	{0xec50b255ff, "300241", 2, "OFB-MASS:44370", "ONLINE_ACCESS", 1},
	{0xec3e62d5ff, "300241", 2, "OFB-MASS:51074", "ME3_PRC_EXTENDEDCUT", 5},
	{0xec50b5633f, "300241", 2, "OFB-MASS:44370", "ME3_PRC_PROTHEAN", 5},
	{0xec50b8707f, "300241", 2, "OFB-MASS:52001", "ME3_PRC_LEVIATHAN", 5},
	{0xec50ac3b7f, "300241", 2, "OFB-MASS:55146", "ME3_PRC_OMEGA", 5},
	{0xec50af48bf, "300241", 2, "OFB-EAST:57550", "ME3_PRC_CITADEL", 5},
}

func encodeEntitlement(b *tdf.Builder, e entitlement) {
	b.StrEmpty("DEV")
	b.Str("GDA", "2012-12-15T16:15Z")
	b.Str("GNA", "ME3PCOffers")
	b.U64("ID_", e.id)
	b.U8("ISC", 0)
	b.U8("PID", 0)
	b.Str("PJI", e.pjid)
	b.U8("PRC", e.prca)
	b.Str("PRI", e.prid)
	b.U8("STA", 1)
	b.U8("STR", 0)
	b.Str("TAG", e.tag)
	b.StrEmpty("TDA")
	b.U8("TTY", e.typ)
	b.U8("UCN", 0)
	b.U8("VER", 0)
}

// HandleGetLegalDocsInfo responds with the fixed legal-docs descriptor —
// none of its fields ever vary, per the source's dummy LegalDocsInfo.
func HandleGetLegalDocsInfo(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	b := tdf.NewBuilder()
	b.Zero("EAM")
	b.StrEmpty("LHS")
	b.Zero("PMC")
	b.StrEmpty("PPU")
	b.StrEmpty("TSU")
	g := b.Build()
	return &g, nil
}

// HandleGetTermsOfServiceContent and HandleGetPrivacyPolicyContent serve
// the static HTML content from the LegalContent collaborator.
func HandleGetTermsOfServiceContent(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	legal, err := router.MustService[LegalContent](req)
	if err != nil {
		return nil, err
	}
	g := legalContentResponse(legal.TermsOfService())
	return &g, nil
}

func HandleGetPrivacyPolicyContent(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	legal, err := router.MustService[LegalContent](req)
	if err != nil {
		return nil, err
	}
	g := legalContentResponse(legal.PrivacyPolicy())
	return &g, nil
}

func legalContentResponse(content string) tdf.Group {
	b := tdf.NewBuilder()
	b.U16("COL", 0x0)
	b.Blob("CON", []byte(content))
	b.StrEmpty("PTH")
	return b.Build()
}
