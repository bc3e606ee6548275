// Package consequences — tiers.go описывает таблицу боеголовок: штраф, кулдаун, тяжесть.
// Встроенную таблицу можно переопределить YAML-файлом (CONSEQUENCE_TIERS_FILE).
package consequences

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Severity — тяжесть удара.
type Severity string

const (
	SeverityMinor        Severity = "MINOR"
	SeverityModerate     Severity = "MODERATE"
	SeverityMajor        Severity = "MAJOR"
	SeverityCatastrophic Severity = "CATASTROPHIC"
)

var severityRank = map[Severity]int{
	SeverityMinor:        1,
	SeverityModerate:     2,
	SeverityMajor:        3,
	SeverityCatastrophic: 4,
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Tier — последствия одного типа боеголовки.
type Tier struct {
	ReputationLoss    int64    `yaml:"reputation_loss"`
	CooldownDays      int      `yaml:"cooldown_days"`
	Severity          Severity `yaml:"severity"`
	AllowsRetaliation bool     `yaml:"allows_retaliation"`
	AffectsAllMembers bool     `yaml:"affects_all_members"`
	RequiresVote      bool     `yaml:"requires_vote"`
}

// Cooldown — длительность кулдауна ОМП после удара.
func (t Tier) Cooldown() time.Duration {
	return time.Duration(t.CooldownDays) * 24 * time.Hour
}

func (t Tier) validate() error {
	if !t.Severity.Valid() {
		return fmt.Errorf("неизвестная тяжесть %q", t.Severity)
	}
	if t.ReputationLoss < 0 {
		return fmt.Errorf("reputation_loss не может быть отрицательным")
	}
	if t.CooldownDays < 0 {
		return fmt.Errorf("cooldown_days не может быть отрицательным")
	}
	return nil
}

// Table — тиры по типу боеголовки (ключи в верхнем регистре).
type Table map[string]Tier

// Встроенные боеголовки
const (
	WarheadSabotage   = "SABOTAGE"
	WarheadTactical   = "TACTICAL"
	WarheadStrategic  = "STRATEGIC"
	WarheadClanBuster = "CLAN_BUSTER"
)

// DefaultTable — встроенная таблица.
func DefaultTable() Table {
	return Table{
		WarheadSabotage: {
			ReputationLoss: 250, CooldownDays: 1, Severity: SeverityMinor,
		},
		WarheadTactical: {
			ReputationLoss: 2000, CooldownDays: 14, Severity: SeverityModerate,
			AllowsRetaliation: true, AffectsAllMembers: true, RequiresVote: true,
		},
		WarheadStrategic: {
			ReputationLoss: 5000, CooldownDays: 30, Severity: SeverityMajor,
			AllowsRetaliation: true, AffectsAllMembers: true, RequiresVote: true,
		},
		WarheadClanBuster: {
			ReputationLoss: 10000, CooldownDays: 60, Severity: SeverityCatastrophic,
			AllowsRetaliation: true, AffectsAllMembers: true, RequiresVote: true,
		},
	}
}

type tableFile struct {
	Tiers map[string]Tier `yaml:"tiers"`
}

// LoadTable читает переопределения из YAML поверх встроенной таблицы.
// Пустой путь — встроенная таблица как есть.
//
//	tiers:
//	  tactical:
//	    reputation_loss: 3000
//	    cooldown_days: 21
//	    severity: MODERATE
//	    allows_retaliation: true
//	    affects_all_members: true
//	    requires_vote: true
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать таблицу тиров: %w", err)
	}
	return parseTable(table, data)
}

func parseTable(base Table, data []byte) (Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("некорректный YAML таблицы тиров: %w", err)
	}
	for name, tier := range file.Tiers {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("пустое имя боеголовки в таблице тиров")
		}
		if err := tier.validate(); err != nil {
			return nil, fmt.Errorf("тир %s: %w", key, err)
		}
		base[key] = tier
	}
	return base, nil
}

// Lookup ищет тир без учёта регистра.
func (t Table) Lookup(warhead string) (Tier, bool) {
	tier, ok := t[normalize(warhead)]
	return tier, ok
}

// Lowest — самый мягкий тир: минимальная тяжесть, затем минимальный штраф.
func (t Table) Lowest() (string, Tier) {
	names := t.Names()
	if len(names) == 0 {
		return "", Tier{}
	}
	return names[0], t[names[0]]
}

// Names — боеголовки от самой мягкой к самой тяжёлой.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ta, tb := t[a], t[b]
		if d := severityRank[ta.Severity] - severityRank[tb.Severity]; d != 0 {
			return d
		}
		if ta.ReputationLoss != tb.ReputationLoss {
			if ta.ReputationLoss < tb.ReputationLoss {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return names
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
