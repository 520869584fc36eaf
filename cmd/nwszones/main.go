package main

import "github.com/mattermost/mattermost-plugin-nws-alerts/cmd/nwszones/cmd"

func main() {
	cmd.Execute()
}
