package node

import (
	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/resp"
)

// SET key value
func setCommand(store db.Store, argv []string) resp.Node {
	store.Set(argv[1], argv[2])
	return SharedOk
}

// GET key
func getCommand(store db.Store, argv []string) resp.Node {
	value, ok := store.Get(argv[1])
	if !ok {
		return SharedNullBulk
	}
	return resp.Bulk(value)
}
