package node

import (
	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/resp"
)

func pingCommand(_ db.Store, _ []string) resp.Node {
	return SharedPong
}

// DEL key
func delCommand(store db.Store, argv []string) resp.Node {
	return boolReply(store.Delete(argv[1]))
}

// EXISTS key
func existsCommand(store db.Store, argv []string) resp.Node {
	return boolReply(store.Exists(argv[1]))
}

func boolReply(b bool) resp.Node {
	if b {
		return SharedCOne
	}
	return SharedCZero
}
