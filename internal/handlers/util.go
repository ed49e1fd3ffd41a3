package handlers

import (
	"context"
	"time"

	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// srcVersion and blazeVersion are the fixed client-contract version strings
// carried in PreAuth, reproduced from the source's SRC_VERSION/BLAZE_VERSION.
const (
	srcVersion   = "303107"
	blazeVersion = "Blaze 3.15.08.0 (CL# 1629389)"
	pingPeriod   = "15s"
)

// preAuthComponentIDs is the CIDS list: every component id the client will
// use this session.
var preAuthComponentIDs = []int64{
	0x1, 0x19, 0x4, 0x1c, 0x7, 0x9, 0x7802, 0x7800, 0xf, 0x7801, 0x7802, 0x7803, 0x7805, 0x7806, 0x7d0,
}

// HandlePreAuth responds with the fixed server descriptor set: ping
// interval, QoS endpoint, and the component id list, per §4.J.
func HandlePreAuth(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	scheme, host, port := req.Session.ConnectedThrough()
	_ = scheme

	b := tdf.NewBuilder()
	b.Zero("ANO")
	b.Str("ASR", srcVersion)
	b.U32List("CID", int32sFrom(preAuthComponentIDs))
	b.StrEmpty("CNG")
	b.Group("CON", func(conf *tdf.Builder) {
		conf.StrMap("CON", []string{"pingPeriod", "voipHeadsetUpdateRate", "xlspConnectionIdleTimeout"}, map[string]string{
			"pingPeriod":                pingPeriod,
			"voipHeadsetUpdateRate":     "1000",
			"xlspConnectionIdleTimeout": "300",
		})
	})
	b.Str("INS", "masseffect-3-pc")
	b.Zero("MIN")
	b.Str("NAS", "cem_ea_id")
	b.StrEmpty("PIL")
	b.Str("PLA", "pc")
	b.StrEmpty("PTA")
	b.Group("QOS", func(qoss *tdf.Builder) {
		qoss.Group("BWP", func(bwps *tdf.Builder) { encodeQosSite(bwps, host, port) })
		qoss.U8("LNP", 10)
		qoss.Group("LTP", func(ltps *tdf.Builder) { encodeQosSite(ltps, host, port) })
		qoss.U32("SVI", 0x45410805)
	})
	b.Str("RSR", srcVersion)
	b.Str("SVE", blazeVersion)
	g := b.Build()
	return &g, nil
}

func encodeQosSite(b *tdf.Builder, host string, port uint16) {
	b.Str("PSA", host)
	b.U16("PSP", port)
	b.Str("SNA", "prod-sjc")
}

func int32sFrom(vals []int64) []int32 {
	out := make([]int32, len(vals))
	for i, v := range vals {
		out[i] = int32(v)
	}
	return out
}

// HandlePostAuth responds with telemetry/ticker/PSS descriptors and queues
// a SetSession notify for the now-authenticated player, per §4.J.
func HandlePostAuth(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}

	factory, ferr := router.MustService[*Factory](req)
	if ferr == nil {
		_ = req.Session.Enqueue(factory.SetSessionSelf(req.Session, player))
	}

	b := tdf.NewBuilder()
	b.Group("PSS", func(pss *tdf.Builder) {
		pss.Str("ADR", "playersyncservice.ea.com")
		pss.BlobEmpty("CSI")
		pss.Str("PJI", srcVersion)
		pss.U16("POR", 443)
		pss.U8("RPR", 0xF)
		pss.U8("TII", 0)
	})
	b.Group("TEL", func(g *tdf.Builder) { encodeTelemetryServer(g) })
	b.Group("TIC", func(g *tdf.Builder) { encodeTickerServer(g) })
	b.Group("URO", func(urop *tdf.Builder) {
		urop.U8("TMO", 1)
		urop.U32("UID", uint32(player.ID))
	})
	g := b.Build()
	return &g, nil
}

func encodeTelemetryServer(b *tdf.Builder) {
	b.Str("ADR", "159.153.235.32")
	b.Zero("ANO")
	b.Str("DIS", telemetryDisabledRegions)
	b.Str("FIL", "-UION/****")
	b.U32("LOC", 1701727834)
	b.Str("NOO", "US,CA,MX")
	b.U16("POR", 9988)
	b.U16("SDL", 15000)
	b.Str("SES", "pcwdjtOCVpD")
	b.Str("SKE", telemetryKeyHex)
	b.U8("SPC", 75)
	b.StrEmpty("STI")
}

func encodeTickerServer(b *tdf.Builder) {
	b.Str("ADR", "10.23.15.2")
	b.U16("POR", 8999)
	b.Str("SKE", "1,10.23.15.2:8999,masseffect-3-pc,10,50,50,50,50,0,12")
}

// handleGetTelemetryServer and handleGetTickerServer answer the Util
// component's standalone lookups for the same two descriptors PostAuth
// already embeds inline.
func handleGetTelemetryServer(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	b := tdf.NewBuilder()
	encodeTelemetryServer(b)
	g := b.Build()
	return &g, nil
}

func handleGetTickerServer(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	b := tdf.NewBuilder()
	encodeTickerServer(b)
	g := b.Build()
	return &g, nil
}

// telemetryDisabledRegions and telemetryKeyHex are fixed literals carried
// unmodified from the source's TELEMTRY_DISA/TELEMETRY_KEY.
const telemetryDisabledRegions = "AD,AF,AG,AI,AL,AM,AN,AO,AQ,AR,AS,AW,AX,AZ,BA,BB,BD,BF,BH,BI,BJ,BM,BN,BO,BR,BS,BT,BV,BW,BY,BZ,CC,CD,CF,CG,CI,CK,CL,CM,CN,CO,CR,CU,CV,CX,DJ,DM,DO,DZ,EC,EG,EH,ER,ET,FJ,FK,FM,FO,GA,GD,GE,GF,GG,GH,GI,GL,GM,GN,GP,GQ,GS,GT,GU,GW,GY,HM,HN,HT,ID,IL,IM,IN,IO,IQ,IR,IS,JE,JM,JO,KE,KG,KH,KI,KM,KN,KP,KR,KW,KY,KZ,LA,LB,LC,LI,LK,LR,LS,LY,MA,MC,MD,ME,MG,MH,ML,MM,MN,MO,MP,MQ,MR,MS,MU,MV,MW,MY,MZ,NA,NC,NE,NF,NG,NI,NP,NR,NU,OM,PA,PE,PF,PG,PH,PK,PM,PN,PS,PW,PY,QA,RE,RS,RW,SA,SB,SC,SD,SG,SH,SJ,SL,SM,SN,SO,SR,ST,SV,SY,SZ,TC,TD,TF,TG,TH,TJ,TK,TL,TM,TN,TO,TT,TV,TZ,UA,UG,UM,UY,UZ,VA,VC,VE,VG,VN,VU,WF,WS,YE,YT,ZM,ZW,ZZ"
const telemetryKeyHex = "5E8ACBDDF8ECC1959899F994C0ADEEFCCEA487DE8AA6CEDCB0EEE8E5B3F5AD9AB2E5E4B19986C78E9BB0F4C081A3A78D9CBAC289D3C3AC9896A4E0C08183868C98B0E0CC8993C6CC9AE4C899E382EED897EDC2CD9BD7CC99B3E5C6D1EBB2A68BB8E3D8C4A183C68C9CB6F0D0C19387CBB2EE8895D28080"

// HandlePing responds with the current server unix time, per the source's
// PingResponse.
func HandlePing(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	b := tdf.NewBuilder().U64("STI", uint64(time.Now().Unix()))
	g := b.Build()
	return &g, nil
}

// HandleSuspendUserPing acknowledges but does not otherwise enforce the
// suspend request: this deployment has no background ping-liveness
// enforcement to suspend.
func HandleSuspendUserPing(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	return nil, nil
}

// HandleFetchClientConfig serves the coalesced configuration blob (or any
// other named config id) from the LegalContent/static-content collaborator,
// chunked per §6's NIBC/CHUNK_n contract.
func HandleFetchClientConfig(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	id, _ := body.GetString("CFI")

	legal, lerr := router.MustService[LegalContent](req)
	if lerr != nil {
		return nil, lerr
	}

	b := tdf.NewBuilder()
	if id == "ME3_BINI_PC_COMPRESSED" || id == "ME3_BINI_VERSION" {
		chunks, chunkSize, dataSize := legal.CoalescedChunks()
		keys := make([]string, 0, len(chunks)+2)
		for k := range chunks {
			keys = append(keys, k)
		}
		b.Group("CON", func(conf *tdf.Builder) {
			conf.StrMap("CON", keys, chunks)
			conf.StrMap("CON", []string{"CHUNK_SIZE", "DATA_SIZE"}, map[string]string{
				"CHUNK_SIZE": itoa(chunkSize),
				"DATA_SIZE":  itoa(dataSize),
			})
		})
	} else {
		b.Group("CON", func(conf *tdf.Builder) {})
	}
	g := b.Build()
	return &g, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// HandleUserSettingsSave persists one player-data key/value pair.
func HandleUserSettingsSave(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}
	body, berr := req.Body()
	if berr != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	key, _ := body.GetString("KEY")
	value, _ := body.GetString("DAT")

	store, serr := router.MustService[PlayerStore](req)
	if serr != nil {
		return nil, serr
	}
	if err := store.PlayerDataSet(ctx, player.ID, key, value); err != nil {
		return nil, errs.Wrap(errs.CodeServerUnavailable, err)
	}
	return nil, nil
}

// HandleUserSettingsLoadAll returns every player-data row as a single
// key/value map.
func HandleUserSettingsLoadAll(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	snapshot, err := router.GamePlayer(ctx, req)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(snapshot.Data))
	for k := range snapshot.Data {
		keys = append(keys, k)
	}
	b := tdf.NewBuilder().StrMap("SMA", keys, snapshot.Data)
	g := b.Build()
	return &g, nil
}
