package main

import (
	"bufio"
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/models"
	"clinic_flow_app_go/services"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.Clinician{}, &models.Session{}, &models.DoctorHours{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Clinician ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Role (admin/assistant/doctor/billing/nurse): ")
	role, _ := reader.ReadString('\n')
	role = strings.TrimSpace(strings.ToLower(role))

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println()

	// CreateClinician validates the rest; a nil actor means bootstrap
	clinician, err := services.CreateClinician(db.DB, nil, services.ClinicianInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		log.Fatalf("Failed to create clinician: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ Clinician created successfully!")
	fmt.Printf("  ID: %d\n", clinician.ID)
	fmt.Printf("  Name: %s\n", clinician.Name)
	fmt.Printf("  Email: %s\n", clinician.Email)
	fmt.Printf("  Role: %s\n", clinician.Role)
}
