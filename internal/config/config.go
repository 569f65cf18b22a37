package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr           string
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Stock struct {
		WarehouseRoot string `mapstructure:"warehouse_root"`
		PoolName      string `mapstructure:"pool_name"`
		InUseName     string `mapstructure:"in_use_name"`
		TransferType  string `mapstructure:"transfer_type"`
	} `mapstructure:"stock"`

	Dashboard struct {
		LaptopCategory  string `mapstructure:"laptop_category"`
		PrinterCategory string `mapstructure:"printer_category"`
	} `mapstructure:"dashboard"`

	Forms struct {
		DamageReportSuffix string `mapstructure:"damage_report_suffix"`
	} `mapstructure:"forms"`

	Consumables struct {
		LowStockSchedule string `mapstructure:"low_stock_schedule"`
	} `mapstructure:"consumables"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("stock.warehouse_root", "WH")
	v.SetDefault("stock.pool_name", "IT Pool")
	v.SetDefault("stock.in_use_name", "IT In Use")
	v.SetDefault("stock.transfer_type", "internal")
	v.SetDefault("dashboard.laptop_category", "Laptop")
	v.SetDefault("dashboard.printer_category", "Printer")
	v.SetDefault("forms.damage_report_suffix", "BA/IT")
	v.SetDefault("consumables.low_stock_schedule", "0 8 * * *")
}

func Load(path string) (Config, error) {
	// .env необязателен: в проде переменные приходят из окружения
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	// APP_POSTGRES_DSN перекрывает postgres.dsn и т.д.
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
