package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskmaster/internal/auth"
	"taskmaster/internal/tasks"
)

// snapshot — формат файла данных.
type snapshot struct {
	Tasks []tasks.Task `json:"tasks"`
	Users []storedUser `json:"users"`
}

// storedUser — пользователь на диске. В API хэш пароля скрыт (json:"-"),
// а в файле он обязан быть.
type storedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s snapshot) userList() []auth.User {
	users := make([]auth.User, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, auth.User{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		})
	}
	return users
}

// persist сохраняет кандидата на диск; без файла ничего не делает.
// Вызывается под Lock.
func (s *Store) persist(ctx context.Context, ts []tasks.Task, users []auth.User) error {
	if s.file == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := snapshot{Tasks: ts, Users: make([]storedUser, 0, len(users))}
	if snap.Tasks == nil {
		snap.Tasks = []tasks.Task{}
	}
	for _, u := range users {
		snap.Users = append(snap.Users, storedUser(u))
	}

	data, err := json.MarshalIndent(snap, "", "   ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	// Пишем во временный файл и переименовываем: оборванная запись не
	// портит предыдущий снимок.
	tmp, err := os.CreateTemp(filepath.Dir(s.file), filepath.Base(s.file)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// loadSnapshot читает файл данных. Отсутствующий или пустой файл — пустой снимок.
func loadSnapshot(ctx context.Context, path string) (snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}

	empty := snapshot{Tasks: []tasks.Task{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return empty, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Tasks == nil {
		snap.Tasks = []tasks.Task{}
	}
	return snap, nil
}
