package config

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
)

type Config struct {
	Log      staticLog.Config `yaml:"log"`
	Analysis AnalysisConfig   `yaml:"analysis"`
	KScan    KScanConfig      `yaml:"kscan"`
	ACF      ACFConfig        `yaml:"acf"`
	Fit      FitConfig        `yaml:"fit"`
	FSS      FSSConfig        `yaml:"fss"`
	Output   OutputConfig     `yaml:"output"`
}

type AnalysisConfig struct {
	DefaultK       int            `yaml:"default_k"`
	Workers        int            `yaml:"workers"` // <=0 时使用 GOMAXPROCS
	KPerObservable map[string]int `yaml:"k_per_observable"`
}

type KScanConfig struct {
	Min    int     `yaml:"min"`
	Max    int     `yaml:"max"`
	Step   int     `yaml:"step"`
	RelTol float64 `yaml:"rel_tol"`
}

type ACFConfig struct {
	Method      string  `yaml:"method"`  // fft | direct
	MaxLag      int     `yaml:"max_lag"` // 0: 每个 run 取 len-1
	P0Amplitude float64 `yaml:"p0_amplitude"`
	P0Tau       float64 `yaml:"p0_tau"`
	AutoSeed    bool    `yaml:"auto_seed"`
}

type FitConfig struct {
	MaxIter int           `yaml:"max_iter"`
	Timeout time.Duration `yaml:"timeout"`
}

type FSSConfig struct {
	Observable       string `yaml:"observable"`
	Window           int    `yaml:"window"`
	BinderObservable string `yaml:"binder_observable"`
}

type OutputConfig struct {
	SqlitePath string `yaml:"sqlite_path"`
	XlsxPath   string `yaml:"xlsx_path"`
}

func Default() *Config {
	return &Config{
		Log:      staticLog.Config{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
		Analysis: AnalysisConfig{DefaultK: 16, KPerObservable: map[string]int{}},
		KScan:    KScanConfig{Min: 4, Max: 48, Step: 1, RelTol: 0.01},
		ACF:      ACFConfig{Method: "fft", P0Amplitude: 1.0, P0Tau: 100.0},
		Fit:      FitConfig{MaxIter: 1000, Timeout: 30 * time.Second},
		FSS:      FSSConfig{Observable: "chi_prime", Window: 5, BinderObservable: "U"},
	}
}

// 当前配置, 无锁读取
var cfgValue atomic.Value // stores *Config

// Load 读取 yaml, 未给出的字段保持默认值; path 为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errorx.Wrapf(err, errCode.IO_ERROR, "read yaml %s", path)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, errorx.Wrapf(err, errCode.INVALID_VALUE, "unmarshal yaml %s", path)
		}
	}
	if c.Analysis.KPerObservable == nil {
		c.Analysis.KPerObservable = make(map[string]int)
	}

	// .env 不存在不算错误
	_ = godotenv.Load()
	if v := os.Getenv("ISINGSTAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ISINGSTAT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errorx.Wrap(err, errCode.INVALID_VALUE, "ISINGSTAT_WORKERS")
		}
		c.Analysis.Workers = n
	}

	c.ACF.Method = strings.ToLower(strings.TrimSpace(c.ACF.Method))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Analysis.DefaultK < 2 {
		return errorx.Newf(errCode.INVALID_VALUE, "analysis.default_k must be >= 2, got %d", c.Analysis.DefaultK)
	}
	for name, k := range c.Analysis.KPerObservable {
		if k < 2 {
			return errorx.Newf(errCode.INVALID_VALUE, "analysis.k_per_observable[%s] must be >= 2, got %d", name, k)
		}
	}
	if c.KScan.Min < 2 || c.KScan.Max < c.KScan.Min || c.KScan.Step <= 0 {
		return errorx.Newf(errCode.INVALID_VALUE, "invalid kscan range [%d, %d] step %d", c.KScan.Min, c.KScan.Max, c.KScan.Step)
	}
	if c.KScan.RelTol <= 0 {
		return errorx.New(errCode.INVALID_VALUE, "kscan.rel_tol must be > 0")
	}
	if c.ACF.Method != "fft" && c.ACF.Method != "direct" {
		return errorx.Newf(errCode.INVALID_VALUE, "acf.method must be fft or direct, got %q", c.ACF.Method)
	}
	if c.ACF.MaxLag < 0 {
		return errorx.New(errCode.INVALID_VALUE, "acf.max_lag cannot be negative")
	}
	if c.ACF.P0Tau <= 0 {
		return errorx.New(errCode.INVALID_VALUE, "acf.p0_tau must be > 0")
	}
	if c.Fit.MaxIter <= 0 {
		return errorx.New(errCode.INVALID_VALUE, "fit.max_iter must be > 0")
	}
	if c.FSS.Window < 1 {
		return errorx.New(errCode.INVALID_VALUE, "fss.window must be >= 1")
	}
	return nil
}

func Init(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfgValue.Store(c)
	return c, nil
}

// Get 未 Init 时返回默认配置
func Get() *Config {
	cAny := cfgValue.Load()
	if cAny == nil {
		return Default()
	}
	return cAny.(*Config)
}

// KFor 指定观测量的分块数, 未配置时用 default_k
func (c *Config) KFor(observable string) int {
	if k, ok := c.Analysis.KPerObservable[observable]; ok {
		return k
	}
	return c.Analysis.DefaultK
}
