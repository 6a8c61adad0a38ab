package store

import (
	"errors"
	"testing"
)

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	t.Run("missing key", func(t *testing.T) {
		if _, err := repo.Get("difficulty"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}

		got, err := repo.GetOr("difficulty", "medium")
		if err != nil {
			t.Fatalf("GetOr() error = %v", err)
		}
		if got != "medium" {
			t.Errorf("GetOr() = %q, want %q", got, "medium")
		}
	})

	t.Run("set and overwrite", func(t *testing.T) {
		if err := repo.Set("difficulty", "easy"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Set("difficulty", "hard"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := repo.Get("difficulty")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "hard" {
			t.Errorf("Get() = %q, want %q", got, "hard")
		}
	})

	t.Run("list", func(t *testing.T) {
		if err := repo.Set("sound", "on"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		all, err := repo.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 2 || all["difficulty"] != "hard" || all["sound"] != "on" {
			t.Errorf("List() = %v", all)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete("sound"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete("sound"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}
