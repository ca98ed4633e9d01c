// Package redis carries toggle changes between instances over Redis pub/sub.
//
// Every instance runs an engine with its own kill switch registry and decision
// cache. A Propagator publishes each local mutation as a JSON encoded
// toggle.Change; a Listener on every other instance receives it and calls
// Engine.ApplyChange, which mirrors kill switches and drops cached decisions.
// An instance ignores its own messages by origin.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	prop, _ := redis.NewPropagator(client, cfg.Channel)
//	engine, _ := toggle.NewEngine(provider, toggle.WithPropagator(prop))
//
//	listener, _ := redis.NewListener(client, cfg.Channel, engine)
//	go listener.Run(ctx)
//
// Delivery is at most once. An instance that is offline while a change is
// published will not see it.
//
// Configuration is read from REDIS_* environment variables through Config.
package redis
