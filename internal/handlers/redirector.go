package handlers

import (
	"context"

	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// HandleGetServerInstance responds with the main server's connection
// details so the client's redirector step lands back on this same process
// — this deployment never actually redirects to a second instance.
func HandleGetServerInstance(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	scheme, host, port := req.Session.ConnectedThrough()

	secure := uint8(0)
	if scheme == "ssl" || scheme == "tls" {
		secure = 1
	}

	b := tdf.NewBuilder()
	b.UnionGroup("ADD", 0x0, "VAL", func(val *tdf.Builder) {
		val.Str("HOS", host)
		val.U16("POR", port)
	})
	b.U8("SEC", secure)
	g := b.Build()
	return &g, nil
}
