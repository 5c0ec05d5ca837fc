package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersion — тег не соответствует формату версии.
var ErrInvalidVersion = errors.New("invalid version format")

// versionRe — формат версии: MAJOR.MINOR.PATCH с опциональным
// pre-release суффиксом (a, b или rc) и его номером.
// Примеры валидных версий: "1.2.3", "0.9.0", "2.0.0rc1", "1.0.0a2".
var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:(a|b|rc)(\d+))?$`)

// Version — разобранная версия пакета.
type Version struct {
	// Major, Minor, Patch — числовые компоненты версии.
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`

	// PreKind — тип pre-release: "a" (alpha), "b" (beta), "rc".
	// Пустая строка для финальных релизов.
	PreKind string `json:"pre_kind,omitempty"`

	// PreNum — номер pre-release (например, 1 в "rc1").
	PreNum int `json:"pre_num,omitempty"`
}

// ParseVersion извлекает версию из тега и проверяет формат.
//
// Опциональный префикс "v" отбрасывается: теги приходят как "v1.2.3".
// Если оставшаяся строка не соответствует MAJOR.MINOR.PATCH с
// опциональным суффиксом a/b/rc+номер, возвращается ErrInvalidVersion
// с именем тега — pipeline прерывается с этим сообщением.
func ParseVersion(tag string) (Version, error) {
	raw := strings.TrimPrefix(tag, "v")

	m := versionRe.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, fmt.Errorf("%w: tag %q does not match MAJOR.MINOR.PATCH with optional a/b/rc suffix", ErrInvalidVersion, tag)
	}

	// Группы гарантированно числовые после матча.
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	v := Version{Major: major, Minor: minor, Patch: patch}
	if m[4] != "" {
		v.PreKind = m[4]
		v.PreNum, _ = strconv.Atoi(m[5])
	}
	return v, nil
}

// String возвращает каноническую строку версии без префикса "v".
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreKind != "" {
		s += fmt.Sprintf("%s%d", v.PreKind, v.PreNum)
	}
	return s
}

// IsPreRelease возвращает true для alpha/beta/rc версий.
func (v Version) IsPreRelease() bool {
	return v.PreKind != ""
}
