// Command seed populates a development database with demo accounts, a week
// of doctor availability, and one booked appointment.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	"github.com/medibook/medibook-api/pkg/config"
	"github.com/medibook/medibook-api/pkg/database"
)

func main() {
	var password string
	flag.StringVar(&password, "password", "password123", "Password assigned to every demo account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	availability := repository.NewAvailabilityRepository(db)
	appointments := repository.NewAppointmentRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin := ensureUser(ctx, users, &models.User{
		Email:        "admin@medibook.local",
		PasswordHash: string(hash),
		FullName:     "Admin User",
		Phone:        "555-0100",
		Role:         models.RoleAdmin,
	}, nil)

	doctor := ensureUser(ctx, users, &models.User{
		Email:        "dr.smith@medibook.local",
		PasswordHash: string(hash),
		FullName:     "Dr. Sarah Smith",
		Phone:        "555-0101",
		Role:         models.RoleDoctor,
	}, &models.DoctorProfile{Specialization: "Cardiology", ExperienceYears: 12})

	patient := ensureUser(ctx, users, &models.User{
		Email:        "patient@medibook.local",
		PasswordHash: string(hash),
		FullName:     "Pat Example",
		Phone:        "555-0102",
		Role:         models.RolePatient,
	}, nil)

	if err := users.ApproveDoctor(ctx, doctor.ID); err != nil && !errors.Is(err, repository.ErrAlreadyApproved) {
		log.Fatalf("approve doctor: %v", err)
	}

	slots := [][2]string{{"09:00", "09:30"}, {"09:30", "10:00"}, {"10:00", "10:30"}, {"14:00", "14:30"}}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for offset := 1; offset <= 5; offset++ {
		date := today.AddDate(0, 0, offset)
		for _, s := range slots {
			if _, err := availability.AppendSlot(ctx, doctor.ID, date, s[0], s[1]); err != nil {
				if errors.Is(err, repository.ErrDuplicateSlot) {
					continue
				}
				log.Fatalf("seed availability for %s: %v", date.Format("2006-01-02"), err)
			}
		}
	}

	bookingDate := today.AddDate(0, 0, 1)
	appt, err := appointments.BookSlot(ctx, patient.ID, doctor.ID, bookingDate, "09:00", "09:30")
	switch {
	case err == nil:
		log.Printf("booked demo appointment %s on %s", appt.ID, bookingDate.Format("2006-01-02"))
	case errors.Is(err, repository.ErrSlotTaken):
		log.Printf("demo appointment already booked, skipping")
	default:
		log.Fatalf("book demo appointment: %v", err)
	}

	log.Printf("seed complete: admin=%s doctor=%s patient=%s password=%q", admin.Email, doctor.Email, patient.Email, password)
}

// ensureUser creates the account if the email is free, otherwise returns the
// existing row so reruns are idempotent.
func ensureUser(ctx context.Context, users *repository.UserRepository, user *models.User, profile *models.DoctorProfile) *models.User {
	existing, err := users.FindByEmail(ctx, user.Email)
	if err == nil {
		log.Printf("user %s already exists, skipping", user.Email)
		return existing
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("look up %s: %v", user.Email, err)
	}
	if err := users.Create(ctx, user, profile); err != nil {
		log.Fatalf("create %s: %v", user.Email, err)
	}
	log.Printf("created %s account %s", user.Role, user.Email)
	return user
}
