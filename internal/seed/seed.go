// Package seed holds the default roles, reference data and notification
// taxonomy, embedded as YAML.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/straye-as/enquiry-api/internal/domain"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// RoleSeed is a default role
type RoleSeed struct {
	Name        domain.UserRoleType `yaml:"name"`
	DisplayName string              `yaml:"displayName"`
	Level       int                 `yaml:"level"`
}

// ReasonSeed is a default not-fulfilled reason
type ReasonSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NotificationTypeSeed is one entry of the notification taxonomy.
// SendEmail and SendInApp default to true when omitted.
type NotificationTypeSeed struct {
	Name          domain.NotificationTypeName `yaml:"name"`
	Description   string                      `yaml:"description"`
	Category      domain.NotificationCategory `yaml:"category"`
	Priority      domain.NotificationPriority `yaml:"priority"`
	EmailTemplate string                      `yaml:"emailTemplate"`
	SendEmail     *bool                       `yaml:"sendEmail"`
	SendInApp     *bool                       `yaml:"sendInApp"`
}

// Defaults is the parsed content of the embedded seed file
type Defaults struct {
	Roles             []RoleSeed             `yaml:"roles"`
	Reasons           []ReasonSeed           `yaml:"reasons"`
	LeadSources       []string               `yaml:"leadSources"`
	NotificationTypes []NotificationTypeSeed `yaml:"notificationTypes"`
}

var (
	loadOnce sync.Once
	loaded   Defaults
	loadErr  error
)

// Load parses the embedded defaults once.
func Load() (Defaults, error) {
	loadOnce.Do(func() {
		loadErr = Parse(defaultsYAML, &loaded)
	})
	return loaded, loadErr
}

// Parse decodes a seed document and validates its enums.
func Parse(data []byte, out *Defaults) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}
	for _, r := range out.Roles {
		if !r.Name.IsValid() {
			return fmt.Errorf("unknown role %q in seed data", r.Name)
		}
	}
	for _, nt := range out.NotificationTypes {
		switch nt.Category {
		case domain.CategoryFollowUp, domain.CategoryLeadManagement, domain.CategoryUserManagement,
			domain.CategorySystem, domain.CategoryWorkflow:
		default:
			return fmt.Errorf("notification type %s has unknown category %q", nt.Name, nt.Category)
		}
	}
	return nil
}

// NotificationTypeModels converts the seeded taxonomy into entities
func (d Defaults) NotificationTypeModels() []domain.NotificationType {
	types := make([]domain.NotificationType, 0, len(d.NotificationTypes))
	for _, nt := range d.NotificationTypes {
		priority := nt.Priority
		if priority == "" {
			priority = domain.NotificationPriorityMedium
		}
		types = append(types, domain.NotificationType{
			Name:          nt.Name,
			Description:   nt.Description,
			Category:      nt.Category,
			Priority:      priority,
			EmailTemplate: nt.EmailTemplate,
			SendEmail:     nt.SendEmail == nil || *nt.SendEmail,
			SendInApp:     nt.SendInApp == nil || *nt.SendInApp,
			IsActive:      true,
		})
	}
	return types
}

// Apply inserts any missing roles, reasons, lead sources and notification
// types. Existing rows are left untouched so admin edits survive restarts.
func Apply(ctx context.Context, db *gorm.DB) error {
	d, err := Load()
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// a fresh session per insert; a shared statement keeps the first model's schema
		doNothing := func() *gorm.DB {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Session(&gorm.Session{})
		}

		for _, r := range d.Roles {
			role := domain.Role{Name: r.Name, DisplayName: r.DisplayName, Level: r.Level}
			if err := doNothing().Create(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role %s: %w", r.Name, err)
			}
		}
		for _, r := range d.Reasons {
			reason := domain.Reason{Name: r.Name, Description: r.Description, IsActive: true}
			if err := doNothing().Create(&reason).Error; err != nil {
				return fmt.Errorf("failed to seed reason %s: %w", r.Name, err)
			}
		}
		for _, name := range d.LeadSources {
			source := domain.LeadSource{Name: name, IsActive: true}
			if err := doNothing().Create(&source).Error; err != nil {
				return fmt.Errorf("failed to seed lead source %s: %w", name, err)
			}
		}
		for _, nt := range d.NotificationTypeModels() {
			nt := nt
			if err := doNothing().Create(&nt).Error; err != nil {
				return fmt.Errorf("failed to seed notification type %s: %w", nt.Name, err)
			}
		}
		return nil
	})
}
