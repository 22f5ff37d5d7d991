package conf

import (
	"fmt"
	"time"

	"reelsync/encoding"

	"github.com/yola1107/kratos/v2/config"
	"github.com/yola1107/kratos/v2/config/file"
)

// Bootstrap is the root of the config file.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Game   *Game   `json:"game"`
	Log    *Log    `json:"log"`
}

// Server configures the http listener that carries the websocket renderer.
type Server struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data configures the remote game server and the replay cache.
type Data struct {
	RGS   *RGS   `json:"rgs"`
	Redis *Redis `json:"redis"`
}

type RGS struct {
	URL     string   `json:"url"`     // default base url when the launch query has none
	Timeout Duration `json:"timeout"` // per request
}

type Redis struct {
	Addr     string   `json:"addr"` // empty disables the shared replay cache
	Password string   `json:"password"`
	DB       int      `json:"db"`
	TTL      Duration `json:"ttl"`
}

// Game holds the presentation timings and player defaults.
type Game struct {
	Renderer       string   `json:"renderer"`        // websocket | log
	AutoDismiss    Duration `json:"auto_dismiss"`    // 0 waits for the player
	SkipAnimations bool     `json:"skip_animations"` // settle reels immediately
	Turbo          bool     `json:"turbo"`
	StopOnBonus    bool     `json:"stop_on_bonus"`
	Timing         *Timing  `json:"timing"`
}

type Log struct {
	AppName    string   `json:"app_name"`
	Level      string   `json:"level"`
	Production bool     `json:"production"`
	Directory  string   `json:"directory"`
	Sensitive  []string `json:"sensitive"`
}

// Duration reads a Go duration string such as "1500ms", or a number of nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) { return encoding.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := encoding.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = Duration(p)
	case float64:
		*d = Duration(x)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// Pair is a timing with a normal and a turbo value.
type Pair struct {
	Normal Duration `json:"normal"`
	Turbo  Duration `json:"turbo"`
}

// Pick returns the value for the current speed.
func (p Pair) Pick(turbo bool) time.Duration {
	if turbo {
		return p.Turbo.Std()
	}
	return p.Normal.Std()
}

// Timing groups every wait the sequencer performs.
type Timing struct {
	MinRound         Pair     `json:"min_round"`
	ReelStagger      Duration `json:"reel_stagger"`
	ReelBaseDelay    Pair     `json:"reel_base_delay"`
	AnticipationUnit Pair     `json:"anticipation_unit"`
	Settle           Pair     `json:"settle"`
	BonusSpinLead    Pair     `json:"bonus_spin_lead"`
	ReplayLead       Pair     `json:"replay_lead"`
	ReplayPause      Pair     `json:"replay_pause"`

	FrameDelay       Pair     `json:"frame_delay"`
	LowFrames        int      `json:"low_frames"`
	HighFrames       int      `json:"high_frames"`
	NormalCycles     int      `json:"normal_cycles"`
	TurboCycles      int      `json:"turbo_cycles"`
	NoSymbolWait     Duration `json:"no_symbol_wait"`
	TierWaitHigh     Pair     `json:"tier_wait_high"`
	TierWaitHighAuto Pair     `json:"tier_wait_high_auto"`
	TierWaitLow      Pair     `json:"tier_wait_low"`
	TierWaitLowAuto  Pair     `json:"tier_wait_low_auto"`
	SafetyWait       Duration `json:"safety_wait"`
	FlashDisplay     Duration `json:"flash_display"`
	PopupDisplay     Duration `json:"popup_display"`
	PopupFade        Duration `json:"popup_fade"`

	ScatterPause     Duration `json:"scatter_pause"`
	RetriggerDismiss Duration `json:"retrigger_dismiss"`
	SpinPauseWin     Duration `json:"spin_pause_win"`
	SpinPauseNoWin   Duration `json:"spin_pause_no_win"`

	AutoplayFirst     Duration `json:"autoplay_first"`
	AutoplayNext      Pair     `json:"autoplay_next"`
	ActiveRoundPayout Duration `json:"active_round_payout"`
	ActiveRoundEmpty  Duration `json:"active_round_empty"`
}

// Cycles returns how many times a winning symbol animation loops.
func (t *Timing) Cycles(turbo bool) int {
	if turbo {
		return t.TurboCycles
	}
	return t.NormalCycles
}

func ms(n int) Duration { return Duration(time.Duration(n) * time.Millisecond) }

// DefaultTiming returns the stock timings.
func DefaultTiming() *Timing {
	return &Timing{
		MinRound:         Pair{ms(1500), ms(800)},
		ReelStagger:      ms(100),
		ReelBaseDelay:    Pair{ms(400), ms(200)},
		AnticipationUnit: Pair{ms(600), ms(300)},
		Settle:           Pair{ms(500), ms(300)},
		BonusSpinLead:    Pair{ms(2000), ms(1000)},
		ReplayLead:       Pair{ms(1000), ms(500)},
		ReplayPause:      Pair{ms(600), ms(300)},

		FrameDelay:       Pair{ms(50), ms(25)},
		LowFrames:        16,
		HighFrames:       24,
		NormalCycles:     2,
		TurboCycles:      1,
		NoSymbolWait:     ms(50),
		TierWaitHigh:     Pair{ms(1000), ms(600)},
		TierWaitHighAuto: Pair{ms(800), ms(500)},
		TierWaitLow:      Pair{ms(300), ms(100)},
		TierWaitLowAuto:  Pair{ms(150), ms(50)},
		SafetyWait:       ms(100),
		FlashDisplay:     ms(800),
		PopupDisplay:     ms(4000),
		PopupFade:        ms(300),

		ScatterPause:     ms(1000),
		RetriggerDismiss: ms(2000),
		SpinPauseWin:     ms(500),
		SpinPauseNoWin:   ms(200),

		AutoplayFirst:     ms(1000),
		AutoplayNext:      Pair{ms(1500), ms(800)},
		ActiveRoundPayout: ms(2000),
		ActiveRoundEmpty:  ms(1000),
	}
}

// Default returns a complete config for local runs.
func Default() *Bootstrap {
	return &Bootstrap{
		Server: &Server{Network: "tcp", Addr: ":8000", Timeout: Duration(5 * time.Second)},
		Data: &Data{
			RGS:   &RGS{URL: "https://api.stake-engine.com", Timeout: Duration(10 * time.Second)},
			Redis: &Redis{TTL: Duration(24 * time.Hour)},
		},
		Game: &Game{Renderer: "log", StopOnBonus: true, Timing: DefaultTiming()},
		Log:  &Log{AppName: "reelsync", Level: "info", Directory: "./logs"},
	}
}

// Load scans the config file over the defaults, so keys the file omits keep
// their default and keys it sets, zero included, win.
func Load(path string) (*Bootstrap, error) {
	bc := Default()
	if path == "" {
		return bc, nil
	}
	c := config.New(
		config.WithSource(
			file.NewSource(path),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := c.Scan(bc); err != nil {
		return nil, fmt.Errorf("scan config %s: %w", path, err)
	}
	return bc, nil
}
