package main

import "github.com/ZilDuck/zilliqa-nft-marketplace/internal/daemon"

func main() {
	daemon.Execute()
}
