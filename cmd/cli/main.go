package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/client"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/marketplace"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var api *client.Client

func main() {
	config.Init()

	app := &cli.App{
		Name:  "marketplace",
		Usage: "operate the NFT marketplace over its HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: config.Get().Api.Url, Usage: "marketplace API url", EnvVars: []string{"API_URL"}},
			&cli.StringFlag{Name: "caller", Usage: "address the requests are sent as", EnvVars: []string{"MARKETPLACE_CALLER"}},
		},
		Before: func(c *cli.Context) error {
			caller := entity.NullAddress
			if c.String("caller") != "" {
				var err error
				if caller, err = entity.ParseAddress(c.String("caller")); err != nil {
					return err
				}
			}
			cfg := config.Get().Api
			api = client.New(c.String("url"), caller, cfg.Retries, time.Duration(cfg.Timeout)*time.Second)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "listings",
				Usage:  "show every active listing",
				Action: listings,
			},
			{
				Name:      "listing",
				Usage:     "show a single listing",
				ArgsUsage: "<collection> <assetId>",
				Action:    listing,
			},
			{
				Name:      "list",
				Usage:     "list an asset held by the caller",
				ArgsUsage: "<collection> <assetId>",
				Action:    list,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "price", Required: true, Usage: "price in Qa"},
					&cli.Uint64Flag{Name: "value", Usage: "attached listing fee, computed from the current rate when omitted"},
				},
			},
			{
				Name:      "buy",
				Usage:     "buy a listed asset",
				ArgsUsage: "<collection> <assetId>",
				Action:    buy,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "value", Usage: "attached payment, computed from the listing when omitted"},
				},
			},
			{
				Name:      "cancel",
				Usage:     "cancel the caller's listing",
				ArgsUsage: "<collection> <assetId>",
				Action:    cancel,
			},
			{
				Name:   "fees",
				Usage:  "show fee rates, collected fees and the pause state",
				Action: fees,
			},
			{
				Name:   "withdraw",
				Usage:  "withdraw collected fees to the operator",
				Action: func(c *cli.Context) error { return api.WithdrawFees(c.Context) },
			},
			{
				Name:      "set-list-fee",
				Usage:     "set the listing fee rate (0-100)",
				ArgsUsage: "<rate>",
				Action:    setRate(func(c *cli.Context, rate uint) error { return api.SetListFeeRate(c.Context, rate) }),
			},
			{
				Name:      "set-buy-fee",
				Usage:     "set the buying fee rate (0-100)",
				ArgsUsage: "<rate>",
				Action:    setRate(func(c *cli.Context, rate uint) error { return api.SetBuyFeeRate(c.Context, rate) }),
			},
			{
				Name:   "pause",
				Usage:  "pause listing, buying and cancelling",
				Action: func(c *cli.Context) error { return api.Pause(c.Context) },
			},
			{
				Name:   "unpause",
				Usage:  "resume listing, buying and cancelling",
				Action: func(c *cli.Context) error { return api.Unpause(c.Context) },
			},
			{
				Name:      "transfer-operator",
				Usage:     "hand the operator role to another address",
				ArgsUsage: "<address>",
				Action:    transferOperator,
			},
			{
				Name:      "history",
				Usage:     "show the indexed actions of an asset",
				ArgsUsage: "<collection> <assetId>",
				Action:    history,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 20},
				},
			},
			{
				Name:      "holder",
				Usage:     "show who holds an asset",
				ArgsUsage: "<collection> <assetId>",
				Action:    holder,
			},
			{
				Name:      "balance",
				Usage:     "show an account balance",
				ArgsUsage: "<address>",
				Action:    balance,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Command failed")
	}
}

func listings(c *cli.Context) error {
	l, err := api.Listings(c.Context)
	if err != nil {
		return err
	}
	return printJson(l)
}

func listing(c *cli.Context) error {
	collection, assetId, err := assetArgs(c)
	if err != nil {
		return err
	}

	l, err := api.GetListing(c.Context, collection, assetId)
	if err != nil {
		return err
	}
	return printJson(l)
}

func list(c *cli.Context) error {
	collection, assetId, err := assetArgs(c)
	if err != nil {
		return err
	}

	price := c.Uint64("price")
	value := c.Uint64("value")
	if !c.IsSet("value") {
		summary, err := api.Fees(c.Context)
		if err != nil {
			return err
		}
		value = marketplace.CalculateFee(price, summary.ListFeeRate)
	}

	l, err := api.List(c.Context, collection, assetId, price, value)
	if err != nil {
		return err
	}

	zap.L().With(zap.Uint64("fee", value)).Info("Listed")
	return printJson(l)
}

func buy(c *cli.Context) error {
	collection, assetId, err := assetArgs(c)
	if err != nil {
		return err
	}

	value := c.Uint64("value")
	if !c.IsSet("value") {
		l, err := api.GetListing(c.Context, collection, assetId)
		if err != nil {
			return err
		}
		summary, err := api.Fees(c.Context)
		if err != nil {
			return err
		}
		total, _, ok := marketplace.PurchaseTotal(l.Price, summary.BuyFeeRate)
		if !ok {
			return marketplace.ErrIncorrectPrice
		}
		value = total
	}

	if err := api.Buy(c.Context, collection, assetId, value); err != nil {
		return err
	}

	zap.L().With(zap.String("collection", collection.String()), zap.Uint64("assetId", assetId), zap.Uint64("paid", value)).Info("Bought")
	return nil
}

func cancel(c *cli.Context) error {
	collection, assetId, err := assetArgs(c)
	if err != nil {
		return err
	}
	return api.Cancel(c.Context, collection, assetId)
}

func fees(c *cli.Context) error {
	summary, err := api.Fees(c.Context)
	if err != nil {
		return err
	}
	return printJson(summary)
}

func setRate(set func(c *cli.Context, rate uint) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rate, err := strconv.ParseUint(c.Args().First(), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid rate %q", c.Args().First())
		}
		return set(c, uint(rate))
	}
}

func transferOperator(c *cli.Context) error {
	operator, err := entity.ParseAddress(c.Args().First())
	if err != nil {
		return err
	}
	return api.TransferOperator(c.Context, operator)
}

func history(c *cli.Context) error {
	collection, assetId, err := assetArgs(c)
	if err != nil {
		return err
	}

	actions, err := api.History(c.Context, collection, assetId, c.Int("size"))
	if err != nil {
		return err
	}
	return printJson(actions)
}

func holder(c *cli.Context) error {
	collection, assetId, err := assetArgs(c)
	if err != nil {
		return err
	}

	h, err := api.Holder(c.Context, collection, assetId)
	if err != nil {
		return err
	}
	return printJson(map[string]string{"holder": h.String(), "bech32": h.Bech32()})
}

func balance(c *cli.Context) error {
	account, err := entity.ParseAddress(c.Args().First())
	if err != nil {
		return err
	}

	b, err := api.Balance(c.Context, account)
	if err != nil {
		return err
	}
	return printJson(map[string]interface{}{"address": account, "balance": b})
}

func assetArgs(c *cli.Context) (entity.Address, uint64, error) {
	if c.NArg() != 2 {
		return "", 0, fmt.Errorf("expected <collection> <assetId>, got %d arguments", c.NArg())
	}

	collection, err := entity.ParseAddress(c.Args().Get(0))
	if err != nil {
		return "", 0, err
	}

	assetId, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid asset id %q", c.Args().Get(1))
	}

	return collection, assetId, nil
}

func printJson(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
