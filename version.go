package main

import (
	"fmt"

	"github.com/fzft/go-mini-redis/cmd"
)

// Set via -ldflags "-X main.gitSHA1=... -X main.gitDirty=... -X main.buildDate=...".
var (
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildID   string = "unknown"
	buildDate string = "unknown"
)

func RedisGitSHA1() string {
	return gitSHA1
}

func RedisGitDirty() string {
	return gitDirty
}

func RedisBuildIdRaw() string {
	return buildID + buildDate + gitSHA1 + gitDirty
}

func versionString() string {
	cli := &cmd.RedisCli{}
	return fmt.Sprintf("%s built %s", cli.Version(RedisGitSHA1(), RedisGitDirty()), buildDate)
}
