// Package redis connects the registry's shared backend: a go-redis client
// bound to a key namespace.
//
//	c, err := redis.Connect(ctx, redis.Config{Addr: "localhost:6379"}, log)
//	if err != nil {
//	    return err
//	}
//	store := registry.NewRedisStore(c, c.Prefix(), registry.Options{})
package redis
