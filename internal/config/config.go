package config

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	AMQPURL        string `mapstructure:"AMQP_URL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	ClientOrigin   string `mapstructure:"CLIENT_ORIGIN"`
	MapsAPIKey     string `mapstructure:"MAPS_API_KEY"`
	OTPFromAddress string `mapstructure:"OTP_FROM_ADDRESS"`
	AWSRegion      string `mapstructure:"AWS_REGION"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		// A missing .env file is fine; everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No .env file found.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.MapsAPIKey == "" {
		cfg.MapsAPIKey = os.Getenv("MAPS_API_KEY")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	return &cfg, nil
}
