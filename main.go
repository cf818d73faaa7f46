package main

import "github.com/frahmantamala/voucher-store/cmd"

func main() {
	cmd.Execute()
}
