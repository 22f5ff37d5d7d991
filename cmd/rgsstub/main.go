package main

import (
	"flag"
	"os"
	"time"

	"reelsync/internal/server"

	"github.com/yola1107/kratos/v2"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport/http"
	_ "go.uber.org/automaxprocs"
)

var (
	flagaddr string
	flagbook string
)

func init() {
	flag.StringVar(&flagaddr, "addr", "127.0.0.1:8080", "listen address")
	flag.StringVar(&flagbook, "book", "../../configs/stub_book.json", "recorded rounds, eg: -book stub_book.json")
}

func main() {
	flag.Parse()
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "rgsstub",
	)
	helper := log.NewHelper(logger)

	book, err := server.LoadStubBook(flagbook)
	if err != nil {
		helper.Fatalf("load book %s: %v", flagbook, err)
	}
	hs := http.NewServer(
		http.Address(flagaddr),
		http.Timeout(5*time.Second),
		http.Logger(logger),
	)
	hs.HandlePrefix("/", server.NewRGSStub(book, logger))

	app := kratos.New(
		kratos.Name("rgsstub"),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
	helper.Infow("msg", "rgs stub listening", "addr", flagaddr, "rounds", len(book.Rounds), "replays", len(book.Replays))
	if err := app.Run(); err != nil {
		helper.Fatalf("run: %v", err)
	}
}
