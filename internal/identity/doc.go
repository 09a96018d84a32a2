// Package identity owns the device's durable descriptor: a stable device
// id generated once, plus the name, role and restaurant the device was
// configured with.
//
// The id survives restarts through a DurableStore. SQLiteStore backs it in
// production; MemoryStore serves tests and ephemeral runs.
//
// # Usage
//
//	mgr := identity.NewManager(identity.NewSQLiteStore(db.DB), nil)
//	id, err := mgr.DeviceID(ctx)
//	err = mgr.SetInfo(ctx, identity.Info{RestaurantID: "rest-1"})
//	desc, err := mgr.Descriptor(ctx)
package identity
