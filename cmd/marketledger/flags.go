package main

import (
	"errors"
	"flag"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/events"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/wallets"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"os"
	"strconv"
	"strings"
	"time"
)

/*
POSTGRE USER && DATABASE:

create user ledger with encrypted password '12345678';
create database ledger;
grant all privileges on database ledger to ledger;
\c ledger;
GRANT ALL ON SCHEMA public TO ledger;
*/

var (
	version  = "0.1.0"
	progName = "marketledger"
	source   = "https://github.com/Fuonder/marketledger"
)

var usage = func() {
	fmt.Fprintf(flag.CommandLine.Output(), "%s\nSource code:\t%s\nVersion:\t%s\nUsage of %s:\n",
		progName,
		source,
		version,
		progName)
	flag.PrintDefaults()
}

var (
	ErrNotFullIP   = errors.New("given ip address and port incorrect")
	ErrInvalidIP   = errors.New("incorrect ip address")
	ErrInvalidPort = errors.New("incorrect port number")
)

type netAddress struct {
	ipaddr string
	port   int
}

func (n *netAddress) String() string {
	if n.ipaddr == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", n.ipaddr, n.port)
}

func (n *netAddress) Set(value string) error {
	value = strings.TrimPrefix(value, "http://")
	values := strings.Split(value, ":")
	if len(values) != 2 {
		return fmt.Errorf("%w: \"%s\"", ErrNotFullIP, value)
	}
	n.ipaddr = values[0]
	if n.ipaddr == "" {
		return fmt.Errorf("%w: \"%s\"", ErrInvalidIP, values[0])
	}
	var err error
	n.port, err = strconv.Atoi(values[1])
	if err != nil || n.port <= 0 || n.port > 65535 {
		return fmt.Errorf("%w: \"%s\"", ErrInvalidPort, values[1])
	}
	return nil
}

type decimalValue struct {
	d *decimal.Decimal
}

func (v decimalValue) String() string {
	if v.d == nil {
		return ""
	}
	return v.d.String()
}

func (v decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s", models.ErrInvalidAmount, s)
	}
	*v.d = d
	return nil
}

type Flags struct {
	APIAddress     netAddress
	GatewayAddress netAddress
	DatabaseDSN    string
	LogLevel       string
	Key            string
	Currency       string

	RedisAddress string
	KafkaBrokers string
	KafkaTopic   string
	OrdersTopic  string
	OrdersDLQ    string
	KafkaGroup   string
	WebhookURL   string

	TopupTTL      time.Duration
	SweepInterval time.Duration

	TopupMin        decimal.Decimal
	TopupMax        decimal.Decimal
	WithdrawMin     decimal.Decimal
	WithdrawMinCard decimal.Decimal
}

func (f *Flags) String() string {
	return fmt.Sprintf("APIAddress: %s, "+
		"GatewayAddress: %s, "+
		"LogLevel: %s, "+
		"Currency: %s, "+
		"RedisAddress: %s, "+
		"KafkaBrokers: %s, "+
		"KafkaTopic: %s, "+
		"OrdersTopic: %s, "+
		"TopupTTL: %s, "+
		"SweepInterval: %s",
		f.APIAddress.String(),
		f.GatewayAddress.String(),
		f.LogLevel,
		f.Currency,
		f.RedisAddress,
		f.KafkaBrokers,
		f.KafkaTopic,
		f.OrdersTopic,
		f.TopupTTL,
		f.SweepInterval,
	)
}

// Brokers splits the comma separated broker list.
func (f *Flags) Brokers() []string {
	var out []string
	for _, b := range strings.Split(f.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (f *Flags) Limits() wallets.Limits {
	l := wallets.DefaultLimits()
	l.TopupMin = f.TopupMin
	l.TopupMax = f.TopupMax
	l.WithdrawMin = f.WithdrawMin
	l.WithdrawMinByMethod[models.PayoutCard] = f.WithdrawMinCard
	return l
}

func defaultFlags() Flags {
	l := wallets.DefaultLimits()
	return Flags{
		APIAddress: netAddress{
			ipaddr: "localhost",
			port:   8080,
		},
		LogLevel:        "info",
		Currency:        models.DefaultCurrency,
		KafkaTopic:      events.DefaultTopic,
		OrdersTopic:     "orders.confirmed",
		OrdersDLQ:       "orders.confirmed.dlq",
		KafkaGroup:      "marketledger",
		TopupTTL:        30 * time.Minute,
		SweepInterval:   time.Minute,
		TopupMin:        l.TopupMin,
		TopupMax:        l.TopupMax,
		WithdrawMin:     l.WithdrawMin,
		WithdrawMinCard: l.MinimumWithdrawal(models.PayoutCard),
	}
}

var CliOptions = defaultFlags()

func parseFlags() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	flag.Usage = usage
	return parseFlagsFrom(flag.CommandLine, os.Args[1:], &CliOptions)
}

func parseFlagsFrom(fs *flag.FlagSet, args []string, opts *Flags) error {
	fs.Var(&opts.APIAddress, "a", "ip and port of server in format <ip>:<port>")
	fs.Var(&opts.GatewayAddress, "g", "ip and port of payment gateway in format <ip>:<port>")
	fs.StringVar(&opts.DatabaseDSN, "d", opts.DatabaseDSN, "Database DSN")
	fs.StringVar(&opts.LogLevel, "l", opts.LogLevel, "loglevel")
	fs.StringVar(&opts.Key, "k", opts.Key, "token signing secret")
	fs.StringVar(&opts.Currency, "c", opts.Currency, "account currency")
	fs.StringVar(&opts.RedisAddress, "redis", opts.RedisAddress, "redis address for the balance cache, empty to disable")
	fs.StringVar(&opts.KafkaBrokers, "brokers", opts.KafkaBrokers, "comma separated kafka brokers, empty to disable")
	fs.StringVar(&opts.KafkaTopic, "topic", opts.KafkaTopic, "topic for ledger events")
	fs.StringVar(&opts.OrdersTopic, "orders-topic", opts.OrdersTopic, "topic with confirmed orders")
	fs.StringVar(&opts.OrdersDLQ, "orders-dlq", opts.OrdersDLQ, "topic for order events that failed, empty to only log them")
	fs.StringVar(&opts.KafkaGroup, "group", opts.KafkaGroup, "consumer group for the orders topic")
	fs.StringVar(&opts.WebhookURL, "webhook", opts.WebhookURL, "notification webhook url")
	fs.DurationVar(&opts.TopupTTL, "topup-ttl", opts.TopupTTL, "pending top-up lifetime")
	fs.DurationVar(&opts.SweepInterval, "sweep-interval", opts.SweepInterval, "pending top-up sweep interval")
	fs.Var(decimalValue{&opts.TopupMin}, "topup-min", "minimum top-up amount")
	fs.Var(decimalValue{&opts.TopupMax}, "topup-max", "maximum top-up amount")
	fs.Var(decimalValue{&opts.WithdrawMin}, "withdraw-min", "minimum withdrawal amount")
	fs.Var(decimalValue{&opts.WithdrawMinCard}, "withdraw-min-card", "minimum card withdrawal amount")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := applyEnv(opts); err != nil {
		return err
	}
	if opts.Key == "" {
		return errors.New("token secret is required (-k or SECRET)")
	}
	if opts.TopupMin.GreaterThan(opts.TopupMax) {
		return fmt.Errorf("top-up minimum %s is above maximum %s", opts.TopupMin, opts.TopupMax)
	}
	return nil
}

func applyEnv(opts *Flags) error {
	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		if err := opts.APIAddress.Set(envRunAddr); err != nil {
			return err
		}
	}
	if envGatewayAddr := os.Getenv("GATEWAY_ADDRESS"); envGatewayAddr != "" {
		if err := opts.GatewayAddress.Set(envGatewayAddr); err != nil {
			return err
		}
	}

	texts := map[string]*string{
		"DATABASE_URI":       &opts.DatabaseDSN,
		"LOG_LEVEL":          &opts.LogLevel,
		"SECRET":             &opts.Key,
		"CURRENCY":           &opts.Currency,
		"REDIS_ADDRESS":      &opts.RedisAddress,
		"KAFKA_BROKERS":      &opts.KafkaBrokers,
		"KAFKA_TOPIC":        &opts.KafkaTopic,
		"ORDERS_TOPIC":       &opts.OrdersTopic,
		"ORDERS_DLQ_TOPIC":   &opts.OrdersDLQ,
		"KAFKA_GROUP":        &opts.KafkaGroup,
		"NOTIFY_WEBHOOK_URL": &opts.WebhookURL,
	}
	for name, dst := range texts {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TOPUP_TTL":      &opts.TopupTTL,
		"SWEEP_INTERVAL": &opts.SweepInterval,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = d
		}
	}

	amounts := map[string]*decimal.Decimal{
		"TOPUP_MIN":         &opts.TopupMin,
		"TOPUP_MAX":         &opts.TopupMax,
		"WITHDRAW_MIN":      &opts.WithdrawMin,
		"WITHDRAW_MIN_CARD": &opts.WithdrawMinCard,
	}
	for name, dst := range amounts {
		if v := os.Getenv(name); v != "" {
			if err := (decimalValue{dst}).Set(v); err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
		}
	}
	return nil
}
