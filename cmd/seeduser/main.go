// cmd/seeduser/main.go: crea o actualiza la cuenta de la dueña del local.
// Uso: go run ./cmd/seeduser -email duena@lasmarias.com -password secreto
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"lasmarias/internal/config"
	"lasmarias/internal/infra"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	email := flag.String("email", os.Getenv("SEED_EMAIL"), "email de la cuenta")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "contraseña (mínimo 6 caracteres)")
	nombre := flag.String("nombre", "Dueña", "nombre visible")
	flag.Parse()

	*email = strings.ToLower(strings.TrimSpace(*email))
	if *email == "" || len(*password) < 6 {
		flag.Usage()
		log.Fatal().Msg("email y password (>= 6 caracteres) son obligatorios")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	result := db.WithContext(context.Background()).Exec(`
		INSERT INTO usuarios (email, nombre, password_hash)
		VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    nombre = EXCLUDED.nombre,
		    activo = true,
		    updated_at = now()
	`, *email, *nombre, string(hash))
	if result.Error != nil {
		log.Fatal().Err(result.Error).Msg("insert error")
	}
	log.Info().Str("email", *email).Msg("usuario creado/actualizado")
}
