package main

import (
	"flag"
	"os"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/yola1107/kratos/v2/log"
	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "reelsync"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string
	// flaglaunch is the launch query string the game page was opened with.
	flaglaunch string
	// flagrounds is how many rounds a headless run plays.
	flagrounds int
	// flagfast runs every wait on a virtual clock.
	flagfast bool

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.StringVar(&flaglaunch, "launch", "", "launch query, eg: -launch 'sessionID=abc&rgs_url=localhost:8080'")
	flag.IntVar(&flagrounds, "rounds", 1, "rounds to play with the log renderer")
	flag.BoolVar(&flagfast, "fast", false, "skip real waits")
}

func main() {
	flag.Parse()

	bc, err := conf.Load(flagconf)
	if err != nil {
		panic(err)
	}

	zlog := newLogger(bc.Log)
	defer zlog.Close()
	logger := log.With(zlog,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	log.SetLogger(logger)

	launch, err := biz.ParseLaunch(flaglaunch, bc.Data.RGS.URL)
	if err != nil {
		panic(err)
	}

	var clock biz.Clock = biz.RealClock{}
	if flagfast {
		clock = new(biz.InstantClock)
	}

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Game, launch, clock, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		log.NewHelper(logger).Errorf("app stopped: %v", err)
	}
}
