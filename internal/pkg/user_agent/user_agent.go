package user_agent

import (
	"embed"
	"fmt"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

const (
	UnknownBrowser = "Unknown"
	DefaultDevice  = "Desktop"
	UnknownOS      = "Unknown"
)

type UserAgent struct {
	UserAgent string
	Browser   string
	Device    string
	OS        string
}

//go:embed database/rules.yml
var databaseFiles embed.FS

// Rule maps a pattern to a label. Rules are evaluated in order.
type Rule struct {
	Label   string `yaml:"label"`
	Pattern string `yaml:"pattern"`
}

// RuleSet holds the ordered rule tables for each classification.
type RuleSet struct {
	Browsers         []Rule `yaml:"browsers"`
	Devices          []Rule `yaml:"devices"`
	OperatingSystems []Rule `yaml:"operating_systems"`
}

// Compiled regex cache
type RegexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *RegexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

// Classifier applies a RuleSet to user agent strings.
type Classifier struct {
	rules      RuleSet
	regexCache *RegexCache
}

// NewClassifier compiles every pattern of rules up front.
func NewClassifier(rules RuleSet) (*Classifier, error) {
	c := &Classifier{rules: rules, regexCache: newRegexCache()}
	for _, table := range [][]Rule{rules.Browsers, rules.Devices, rules.OperatingSystems} {
		for _, rule := range table {
			if _, err := c.regexCache.get(rule.Pattern); err != nil {
				return nil, fmt.Errorf("invalid pattern for %s: %w", rule.Label, err)
			}
		}
	}
	return c, nil
}

// LoadRules parses the embedded rule tables.
func LoadRules() (RuleSet, error) {
	var rules RuleSet
	data, err := databaseFiles.ReadFile("database/rules.yml")
	if err != nil {
		return rules, err
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("error parsing rules.yml: %w", err)
	}
	return rules, nil
}

func (c *Classifier) firstMatch(rules []Rule, userAgent, fallback string) string {
	if userAgent == "" {
		return fallback
	}
	for _, rule := range rules {
		if regex, err := c.regexCache.get(rule.Pattern); err == nil {
			if regex.MatchString(userAgent) {
				return rule.Label
			}
		}
	}
	return fallback
}

// Browser returns the first matching browser label or "Unknown".
func (c *Classifier) Browser(userAgent string) string {
	return c.firstMatch(c.rules.Browsers, userAgent, UnknownBrowser)
}

// Device returns the first matching device label or "Desktop".
func (c *Classifier) Device(userAgent string) string {
	return c.firstMatch(c.rules.Devices, userAgent, DefaultDevice)
}

// OS returns the first matching operating system label or "Unknown".
func (c *Classifier) OS(userAgent string) string {
	return c.firstMatch(c.rules.OperatingSystems, userAgent, UnknownOS)
}

// Parse classifies userAgent in one pass.
func (c *Classifier) Parse(userAgent string) UserAgent {
	return UserAgent{
		UserAgent: userAgent,
		Browser:   c.Browser(userAgent),
		Device:    c.Device(userAgent),
		OS:        c.OS(userAgent),
	}
}

// Global classifier built from the embedded rules
var (
	defaultClassifier *Classifier
	once              sync.Once
)

func getClassifier() *Classifier {
	once.Do(func() {
		rules, err := LoadRules()
		if err != nil {
			panic(err)
		}
		defaultClassifier, err = NewClassifier(rules)
		if err != nil {
			panic(err)
		}
	})
	return defaultClassifier
}

// ParseUserAgent classifies userAgent with the embedded rules.
func ParseUserAgent(userAgent string) UserAgent {
	return getClassifier().Parse(userAgent)
}
