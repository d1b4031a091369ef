package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the root of configs/config.yaml.
type Bootstrap struct {
	Log       *Log       `json:"log"`
	Data      *Data      `json:"data"`
	Search    *Search    `json:"search"`
	Clip      *Clip      `json:"clip"`
	Providers *Providers `json:"providers"`
	Storage   *Storage   `json:"storage"`
}

func (x *Bootstrap) GetLog() *Log {
	if x != nil {
		return x.Log
	}
	return nil
}

func (x *Bootstrap) GetData() *Data {
	if x != nil {
		return x.Data
	}
	return nil
}

func (x *Bootstrap) GetSearch() *Search {
	if x != nil {
		return x.Search
	}
	return nil
}

func (x *Bootstrap) GetClip() *Clip {
	if x != nil {
		return x.Clip
	}
	return nil
}

func (x *Bootstrap) GetProviders() *Providers {
	if x != nil {
		return x.Providers
	}
	return nil
}

func (x *Bootstrap) GetStorage() *Storage {
	if x != nil {
		return x.Storage
	}
	return nil
}

type Log struct {
	Level string `json:"level"`
}

func (x *Log) GetLevel() string {
	if x != nil {
		return x.Level
	}
	return ""
}

// Data holds connection settings for every backing store.
type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Badger   *Data_Badger   `json:"badger"`
}

func (x *Data) GetDatabase() *Data_Database {
	if x != nil {
		return x.Database
	}
	return nil
}

func (x *Data) GetRedis() *Data_Redis {
	if x != nil {
		return x.Redis
	}
	return nil
}

func (x *Data) GetBadger() *Data_Badger {
	if x != nil {
		return x.Badger
	}
	return nil
}

type Data_Database struct {
	Driver string        `json:"driver"`
	Source string        `json:"source"`
	Pool   *Data_DB_Pool `json:"pool"`
}

type Data_DB_Pool struct {
	MaxOpenConns    int32 `json:"max_open_conns"`
	MinIdleConns    int32 `json:"min_idle_conns"`
	MaxConnLifetime int32 `json:"max_conn_lifetime"` // minutes
	MaxConnIdleTime int32 `json:"max_conn_idle_time"`
}

type Data_Redis struct {
	Enabled      bool      `json:"enabled"`
	Network      string    `json:"network"`
	Addr         string    `json:"addr"`
	Password     string    `json:"password"`
	DB           int       `json:"db"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
}

type Data_Badger struct {
	Path     string `json:"path"`
	InMemory bool   `json:"in_memory"`
}

// Search tunes the orchestrator and the ranking merger.
type Search struct {
	MaxPerProvider  int       `json:"max_per_provider"`
	MaxPerKeyword   int       `json:"max_per_keyword"`
	TopK            int       `json:"top_k"`
	KeywordFanout   int       `json:"keyword_fanout"`
	EmbedWorkers    int       `json:"embed_workers"`
	ProviderTimeout *Duration `json:"provider_timeout"`
	EmbedTimeout    *Duration `json:"embed_timeout"`
	RequestTimeout  *Duration `json:"request_timeout"`
	KeywordCacheTTL *Duration `json:"keyword_cache_ttl"`
	PHashDistance   int       `json:"phash_distance"`
}

func (x *Search) GetProviderTimeout() *Duration {
	if x != nil {
		return x.ProviderTimeout
	}
	return nil
}

func (x *Search) GetEmbedTimeout() *Duration {
	if x != nil {
		return x.EmbedTimeout
	}
	return nil
}

func (x *Search) GetRequestTimeout() *Duration {
	if x != nil {
		return x.RequestTimeout
	}
	return nil
}

func (x *Search) GetKeywordCacheTTL() *Duration {
	if x != nil {
		return x.KeywordCacheTTL
	}
	return nil
}

func (x *Search) GetMaxPerProvider() int {
	if x != nil {
		return x.MaxPerProvider
	}
	return 0
}

func (x *Search) GetMaxPerKeyword() int {
	if x != nil {
		return x.MaxPerKeyword
	}
	return 0
}

func (x *Search) GetTopK() int {
	if x != nil {
		return x.TopK
	}
	return 0
}

func (x *Search) GetKeywordFanout() int {
	if x != nil {
		return x.KeywordFanout
	}
	return 0
}

func (x *Search) GetEmbedWorkers() int {
	if x != nil {
		return x.EmbedWorkers
	}
	return 0
}

func (x *Search) GetPHashDistance() int {
	if x != nil {
		return x.PHashDistance
	}
	return 0
}

// Clip points at the remote embedding/similarity service.
type Clip struct {
	Endpoints       []string  `json:"endpoints"`
	Model           string    `json:"model"`
	Timeout         *Duration `json:"timeout"`
	LocalSimilarity bool      `json:"local_similarity"`
}

func (x *Clip) GetTimeout() *Duration {
	if x != nil {
		return x.Timeout
	}
	return nil
}

type Providers struct {
	Pixabay  *Provider `json:"pixabay"`
	Pexels   *Provider `json:"pexels"`
	Unsplash *Provider `json:"unsplash"`
}

func (x *Providers) GetPixabay() *Provider {
	if x != nil {
		return x.Pixabay
	}
	return nil
}

func (x *Providers) GetPexels() *Provider {
	if x != nil {
		return x.Pexels
	}
	return nil
}

func (x *Providers) GetUnsplash() *Provider {
	if x != nil {
		return x.Unsplash
	}
	return nil
}

type Provider struct {
	Enabled           bool      `json:"enabled"`
	BaseURL           string    `json:"base_url"`
	APIKey            string    `json:"api_key"`
	APIKeyFile        string    `json:"api_key_file"`
	Timeout           *Duration `json:"timeout"`
	RequestsPerMinute int       `json:"requests_per_minute"`
}

func (x *Provider) GetEnabled() bool {
	if x != nil {
		return x.Enabled
	}
	return false
}

func (x *Provider) GetTimeout() *Duration {
	if x != nil {
		return x.Timeout
	}
	return nil
}

type Storage struct {
	UploadDir string `json:"upload_dir"`
	MaxBytes  int64  `json:"max_bytes"`
}

// Duration decodes "10s"-style strings or a number of seconds.
type Duration struct {
	time.Duration
}

// AsDuration returns the wrapped value; nil yields zero.
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("conf: invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	default:
		return fmt.Errorf("conf: invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
