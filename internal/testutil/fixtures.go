package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"investtrack/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestPassword satisfies the strong password policy.
const TestPassword = "Passw0rd!"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a member-role user with a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, fmt.Sprintf("user%d@test.com", nextID()), models.RoleMember)
}

// CreateTestAdmin creates an admin user with a unique email.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, fmt.Sprintf("admin%d@test.com", nextID()), models.RoleAdmin)
}

// CreateTestUserWithRole creates a user with the given email and role whose
// password is TestPassword.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Name:     "Test User",
		Password: string(hash),
		Role:     role,
		Avatar:   models.DefaultAvatar,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func testAddress() models.Address {
	return models.Address{
		StreetLine1: "1 Market Street",
		Locality:    "Fort",
		State:       "Maharashtra",
		Region:      "West",
		Country:     "India",
		PostalCode:  "400001",
	}
}

// CreateTestBroker creates an active Broker firm.
func CreateTestBroker(t *testing.T, db *gorm.DB) *models.Firm {
	t.Helper()
	return CreateTestBrokerNamed(t, db, fmt.Sprintf("Broker %d", nextID()))
}

// CreateTestBrokerNamed creates an active Broker firm with the given name.
func CreateTestBrokerNamed(t *testing.T, db *gorm.DB, name string) *models.Firm {
	t.Helper()

	firm := &models.Firm{
		FirmType:     models.FirmTypeBroker,
		Name:         name,
		LocationType: models.LocationDomestic,
		Address:      testAddress(),
		IsActive:     true,
		Sectors:      datatypes.NewJSONSlice([]string{"Banking", "IT"}),
	}
	if err := db.Create(firm).Error; err != nil {
		t.Fatalf("failed to create test broker: %v", err)
	}
	return firm
}

// CreateTestInvestor creates an active Investor firm.
func CreateTestInvestor(t *testing.T, db *gorm.DB) *models.Firm {
	t.Helper()
	return CreateTestInvestorNamed(t, db, fmt.Sprintf("Investor %d", nextID()))
}

// CreateTestInvestorNamed creates an active Investor firm with the given name.
func CreateTestInvestorNamed(t *testing.T, db *gorm.DB, name string) *models.Firm {
	t.Helper()

	firm := &models.Firm{
		FirmType:      models.FirmTypeInvestor,
		Name:          name,
		LocationType:  models.LocationForeign,
		Address:       testAddress(),
		IsActive:      true,
		RegionalFocus: datatypes.NewJSONSlice([]string{"Asia", "Europe"}),
	}
	if err := db.Create(firm).Error; err != nil {
		t.Fatalf("failed to create test investor: %v", err)
	}
	return firm
}

// CreateTestMember creates a member of the variant matching firm, with one
// firm history entry.
func CreateTestMember(t *testing.T, db *gorm.DB, firm *models.Firm) *models.Member {
	t.Helper()

	n := nextID()
	member := &models.Member{
		MemberType:  firm.MemberType(),
		Name:        fmt.Sprintf("Member %d", n),
		Email:       fmt.Sprintf("member%d@test.com", n),
		Mobile:      models.MobileNumber{CountryCode: "IN", Number: fmt.Sprintf("9%09d", n)},
		Designation: "Analyst",
		Address:     testAddress(),
		FirmID:      firm.ID,
		Sectors:     datatypes.NewJSONSlice([]string{"Banking"}),
		FirmHistory: []models.FirmHistoryEntry{
			{FirmID: firm.ID, Seq: 1, DateOfJoining: time.Now().Add(-24 * time.Hour)},
		},
	}
	if firm.IsInvestor() {
		member.RegionalFocus = datatypes.NewJSONSlice([]string{"Asia"})
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}
	return member
}

// CreateTestInteraction logs an interaction with member.
func CreateTestInteraction(t *testing.T, db *gorm.DB, member *models.Member) *models.Interaction {
	t.Helper()

	interaction := &models.Interaction{
		FirmID:            member.FirmID,
		MemberID:          member.ID,
		Content:           fmt.Sprintf("Call %d", nextID()),
		DateOfInteraction: time.Now(),
	}
	if err := db.Create(interaction).Error; err != nil {
		t.Fatalf("failed to create test interaction: %v", err)
	}
	return interaction
}

// CreateTestFile creates file metadata owned by firmID (and memberID when
// non-nil). The payload is not written to any blob store.
func CreateTestFile(t *testing.T, db *gorm.DB, firmID string, memberID *string) *models.File {
	t.Helper()

	n := nextID()
	file := &models.File{
		FirmID:       firmID,
		MemberID:     memberID,
		OriginalName: fmt.Sprintf("card-%d.png", n),
		MimeType:     "image/png",
		Size:         4,
		Checksum:     "0000000000000000000000000000000000000000000000000000000000000000",
		StorageKey:   fmt.Sprintf("fixtures/%d", n),
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return file
}
