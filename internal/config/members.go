package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"garden-attendance/internal/domain"
)

// LoadMembers reads the github id -> chat handle mapping. A missing file yields an empty set.
func LoadMembers(path string) (map[string]domain.Member, error) {
	members := map[string]domain.Member{}
	if path == "" {
		return members, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return members, nil
		}
		return nil, fmt.Errorf("read members file: %w", err)
	}

	var parsed map[string]domain.Member
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse members file: %w", err)
	}
	for github, m := range parsed {
		m.GitHub = github
		members[github] = m
	}
	return members, nil
}

// Users returns the configured member list, or the sorted member ids when none is configured.
func (c Config) Users(members map[string]domain.Member) []string {
	if len(c.Garden.Users) > 0 {
		return append([]string(nil), c.Garden.Users...)
	}
	users := make([]string, 0, len(members))
	for github := range members {
		users = append(users, github)
	}
	sort.Strings(users)
	return users
}
