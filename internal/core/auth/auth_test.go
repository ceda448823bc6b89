package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/sablehq/sable/internal/core/data"
)

func setUpDatabase(t *testing.T) *gorm.DB {
	testDBFile := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(testDBFile))
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}
	if err = db.AutoMigrate(&data.Account{}); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	return db
}

func TestHashPassword(t *testing.T) {
	password := "password"
	hashed := HashPassword(password)

	if password == hashed {
		t.Fatalf("expected hashed password not to equal password")
	}

	for i := 0; i < 10; i++ {
		if h := HashPassword(password); hashed != h {
			t.Fatalf("password hashing is non-deterministic (expected %s, got %s)", hashed, h)
		}
	}
}

func TestCreateAccount(t *testing.T) {
	db := setUpDatabase(t)

	account, err := CreateAccount(db, "test", "test", "a@b.c")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	if account.Username != "test" {
		t.Errorf("expected account username = test, got = %s", account.Username)
	}
	if account.Password != HashPassword("test") {
		t.Error("expected account password to equal hashed password")
	}
	if account.Email != "a@b.c" {
		t.Errorf("expected account email = a@b.c, got = %s", account.Email)
	}
	if !account.Active {
		t.Error("expected new account to be active")
	}

	// The unique constraint on username makes a second creation fail.
	if _, err := CreateAccount(db, "test", "other", "x@y.z"); err == nil {
		t.Error("expected an error creating a duplicate account")
	}
}

func TestVerifyAccount(t *testing.T) {
	type args struct {
		username string
		password string
	}
	tests := map[string]struct {
		seedData  func(t *testing.T, db *gorm.DB)
		args      args
		wantedErr error
	}{
		"no_account": {
			seedData:  func(t *testing.T, db *gorm.DB) {},
			args:      args{username: "test", password: "test"},
			wantedErr: ErrInvalidCredentials,
		},
		"invalid_password": {
			seedData: func(t *testing.T, db *gorm.DB) {
				if _, err := CreateAccount(db, "test", "nottest", "a@b.c"); err != nil {
					t.Fatalf("error seeding account: %v", err)
				}
			},
			args:      args{username: "test", password: "test"},
			wantedErr: ErrInvalidCredentials,
		},
		"banned": {
			seedData: func(t *testing.T, db *gorm.DB) {
				account, err := CreateAccount(db, "test", "test", "a@b.c")
				if err != nil {
					t.Fatalf("error seeding account: %v", err)
				}
				account.Banned = true
				if err := db.Save(account).Error; err != nil {
					t.Fatalf("error banning account: %v", err)
				}
			},
			args:      args{username: "test", password: "test"},
			wantedErr: ErrAccountBanned,
		},
		"happy": {
			seedData: func(t *testing.T, db *gorm.DB) {
				if _, err := CreateAccount(db, "test", "test", "a@b.c"); err != nil {
					t.Fatalf("error seeding account: %v", err)
				}
			},
			args:      args{username: "test", password: "test"},
			wantedErr: nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db := setUpDatabase(t)
			tt.seedData(t, db)

			account, err := VerifyAccount(db, tt.args.username, tt.args.password)
			if !errors.Is(err, tt.wantedErr) {
				t.Fatalf("expected error to = %v, got = %v", tt.wantedErr, err)
			}

			if tt.wantedErr == nil {
				if account == nil {
					t.Fatal("expected an account on success")
				}
				if account.Username != tt.args.username {
					t.Errorf("expected account username = %s, got = %s", tt.args.username, account.Username)
				}
			}
		})
	}
}
