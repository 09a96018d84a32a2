// Package hubclient keeps a staff device connected to its restaurant hub
// and exchanges order traffic over the session channel.
//
// A Client pairs from a scanned QR payload, negotiates a session transport,
// registers the device, answers keepalives, and reconnects after the hub
// drops. Inbound order traffic is published on an events.Bus.
//
// # Concurrency
//
// Each Client runs one loop goroutine that owns the lifecycle state, the
// timers and the current transport. Transport callbacks, timer firings and
// API calls are queued to that loop, so callbacks never block and per
// channel ordering is preserved. Send, PlaceOrder, UpdateOrder and
// RequestSync write straight to the current channel and report failure
// synchronously; nothing is queued for later delivery unless an
// OfflineHandler is configured.
//
// # States
//
//	Idle ──ConnectToHub──▶ Connecting ──channel open──▶ Connected
//	  ▲                        │                            │
//	  │ Disconnect             │ failure                    │ channel lost
//	  │                        ▼                            ▼
//	  └─────────────────── Disconnected ◀───────────────────┘
//	                           │ reconnect timer
//	                           └──────────▶ Connecting
//
// # Usage
//
//	client := hubclient.New(hubclient.Deps{
//	    Identity:   identityManager,
//	    Transports: rtctransport.Factory(cfg.Hub.ICEServers),
//	    Signaler:   transport.NewHTTPSignaler(nil),
//	    Events:     bus,
//	    Logger:     logger,
//	})
//	defer client.Close()
//
//	if err := client.ConnectToHub(ctx, scanned); err != nil {
//	    return err
//	}
//	res, err := client.PlaceOrder(ctx, protocol.Order{"table": "12"}, items)
package hubclient
