package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// MinPasswordLength enforces a minimum password length for operator accounts
	MinPasswordLength = 8
	// BcryptCost for password hashing
	BcryptCost = 10
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// initTracer initializes OpenTelemetry tracing with stdout exporter
func initTracer() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func validateInputs(email, password string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}

	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	var hasLetter, hasNumber bool
	for _, c := range password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsNumber(c):
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return fmt.Errorf("password must contain at least one letter and one number")
	}

	return nil
}

func main() {
	email := flag.String("email", "", "Operator email address (required)")
	password := flag.String("password", "", "Operator password (required, min 8 chars with letters and numbers)")
	exportFormat := flag.Bool("export", false, "Print as shell export statements")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed-operator -email <email> -password <password> [-export]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	tracer := otel.Tracer("seed-operator")
	_, span := tracer.Start(context.Background(), "seed_operator")
	defer span.End()

	normalizedEmail := strings.ToLower(strings.TrimSpace(*email))
	span.SetAttributes(attribute.String("operator.email", normalizedEmail))

	if err := validateInputs(normalizedEmail, *password); err != nil {
		span.RecordError(err)
		log.Fatalf("Validation failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), BcryptCost)
	if err != nil {
		span.RecordError(err)
		log.Fatalf("Failed to hash password: %v", err)
	}

	prefix := ""
	if *exportFormat {
		prefix = "export "
	}
	fmt.Printf("%sOPERATOR_EMAIL=%s\n", prefix, normalizedEmail)
	fmt.Printf("%sOPERATOR_PASSWORD_HASH='%s'\n", prefix, string(hash))
}
