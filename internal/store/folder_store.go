package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-sqlite3"

	"github.com/vrsandeep/filebox/internal/models"
)

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrFolderExists   = errors.New("folder already exists")
)

const folderColumns = "id, folder_name, folder_path, password_hash, created_at"

func scanFolder(row interface{ Scan(...any) error }) (*models.Folder, error) {
	var folder models.Folder
	var hash sql.NullString
	if err := row.Scan(&folder.ID, &folder.Name, &folder.Path, &hash, &folder.CreatedAt); err != nil {
		return nil, err
	}
	if hash.Valid {
		folder.PasswordHash = &hash.String
	}
	return &folder, nil
}

// CreateFolder inserts a folder record. passwordHash may be empty for an
// unlocked folder.
func (s *Store) CreateFolder(folderPath, name, passwordHash string) (*models.Folder, error) {
	var hash sql.NullString
	if passwordHash != "" {
		hash = sql.NullString{String: passwordHash, Valid: true}
	}
	now := time.Now()
	res, err := s.db.Exec("INSERT INTO folders (folder_name, folder_path, password_hash, created_at) VALUES (?, ?, ?, ?)",
		name, folderPath, hash, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrFolderExists
		}
		return nil, fmt.Errorf("failed to create folder record: %w", err)
	}
	id, _ := res.LastInsertId()
	folder := &models.Folder{ID: id, Name: name, Path: folderPath, CreatedAt: now}
	if hash.Valid {
		folder.PasswordHash = &hash.String
	}
	return folder, nil
}

func (s *Store) GetFolderByPath(folderPath string) (*models.Folder, error) {
	row := s.db.QueryRow("SELECT "+folderColumns+" FROM folders WHERE folder_path = ?", folderPath)
	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return folder, nil
}

// FindLock returns the closest locked folder guarding relPath: the folder
// itself or its nearest locked ancestor. It returns ErrFolderNotFound when
// nothing on the way down is locked.
func (s *Store) FindLock(relPath string) (*models.Folder, error) {
	p := strings.Trim(relPath, "/")
	for p != "" && p != "." {
		folder, err := s.GetFolderByPath(p)
		if err == nil && folder.Locked() {
			return folder, nil
		}
		if err != nil && !errors.Is(err, ErrFolderNotFound) {
			return nil, err
		}
		p = path.Dir(p)
	}
	return nil, ErrFolderNotFound
}

// SetFolderPassword locks or, with an empty hash, unlocks the folder at
// folderPath, creating its record first when it has none.
func (s *Store) SetFolderPassword(folderPath, passwordHash string) error {
	var hash sql.NullString
	if passwordHash != "" {
		hash = sql.NullString{String: passwordHash, Valid: true}
	}
	query := `
		INSERT INTO folders (folder_name, folder_path, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(folder_path) DO UPDATE SET password_hash = excluded.password_hash
	`
	_, err := s.db.Exec(query, path.Base(folderPath), folderPath, hash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update folder lock: %w", err)
	}
	return nil
}

// ListLockedPaths returns the set of locked folder paths.
func (s *Store) ListLockedPaths() (map[string]bool, error) {
	rows, err := s.db.Query("SELECT folder_path FROM folders WHERE password_hash IS NOT NULL AND password_hash != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		locked[p] = true
	}
	return locked, rows.Err()
}

// MoveFolderPaths rewrites the records at oldPath and below so they follow
// a rename or move to newPath.
func (s *Store) MoveFolderPaths(oldPath, newPath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// substr counts characters, not bytes.
	prefixLen := utf8.RuneCountInString(oldPath) + 1
	_, err = tx.Exec(`
		UPDATE folders
		SET folder_path = ? || substr(folder_path, ?)
		WHERE folder_path = ? OR substr(folder_path, 1, ?) = ?`,
		newPath, prefixLen, oldPath, prefixLen, oldPath+"/")
	if err != nil {
		return fmt.Errorf("failed to move folder records: %w", err)
	}
	_, err = tx.Exec("UPDATE folders SET folder_name = ? WHERE folder_path = ?", path.Base(newPath), newPath)
	if err != nil {
		return fmt.Errorf("failed to rename folder record: %w", err)
	}
	return tx.Commit()
}

// DeleteFolderTree removes the record at folderPath and every record below it.
func (s *Store) DeleteFolderTree(folderPath string) error {
	prefixLen := utf8.RuneCountInString(folderPath) + 1
	_, err := s.db.Exec("DELETE FROM folders WHERE folder_path = ? OR substr(folder_path, 1, ?) = ?",
		folderPath, prefixLen, folderPath+"/")
	if err != nil {
		return fmt.Errorf("failed to delete folder records: %w", err)
	}
	return nil
}
