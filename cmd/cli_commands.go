package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fzft/go-mini-redis/node"
)

// commandDocs documentation info used for help command.
type commandDocs struct {
	name    string
	params  string
	summary string
	group   string
	flags   string
	since   string
}

// cliCommandParams lists the argument syntax of every server command. The
// summary, group and flags come from the server's command table.
var cliCommandParams = map[string]string{
	"PING":   "",
	"SET":    "key value",
	"GET":    "key",
	"DEL":    "key",
	"EXISTS": "key",
}

func helpEntries() []commandDocs {
	entries := make([]commandDocs, 0, len(cliCommandParams))
	for name, params := range cliCommandParams {
		doc := commandDocs{name: name, params: params, since: "1.0.0"}
		if cmd, ok := node.LookupCommand(name); ok {
			doc.summary = cmd.Summary
			doc.group = cmd.Group.String()
			doc.flags = cmd.Flags.String()
		}
		entries = append(entries, doc)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries
}

func commandNames() []string {
	names := make([]string, 0, len(cliCommandParams))
	for _, e := range helpEntries() {
		names = append(names, e.name)
	}
	return names
}

// outputHelp prints every command, the commands of a "@group", or one
// command.
func (cli *RedisCli) outputHelp(argv []string) {
	if len(argv) == 0 {
		fmt.Fprintf(cli.out, "miniredis-cli %s\nTo get help about a command:\n      \"help <command>\"\n      \"help @<group>\"\n", RedisVersion)
		for _, e := range helpEntries() {
			cli.outputCommandHelp(e)
		}
		return
	}

	topic := argv[0]
	found := false
	for _, e := range helpEntries() {
		if strings.HasPrefix(topic, "@") {
			if strings.EqualFold(topic[1:], e.group) {
				cli.outputCommandHelp(e)
				found = true
			}
		} else if strings.EqualFold(topic, e.name) {
			cli.outputCommandHelp(e)
			found = true
		}
	}
	if !found {
		fmt.Fprintf(cli.out, "No help for %s\n", topic)
	}
}

func (cli *RedisCli) outputCommandHelp(e commandDocs) {
	fmt.Fprintf(cli.out, "\n  %s %s\n  summary: %s\n  since: %s\n  group: %s\n  flags: %s\n",
		e.name, e.params, e.summary, e.since, e.group, e.flags)
}
