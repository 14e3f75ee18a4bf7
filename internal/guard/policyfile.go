package guard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/bakery/internal/route"
)

// policyFile はポリシーファイル（YAML）の構造。
// 省略された項目はベースポリシーの値を引き継ぐ。
//
//	homes:
//	  login: /login
//	  user: /catalog
//	  admin: /admin/products
//	admin_on_user_route: redirect_admin_home
//	back_navigation_logout: admin_to_user
//	restore_wait_ceiling: 3s
//	routes:
//	  - pattern: /admin/**
//	    class: admin
type policyFile struct {
	Homes              *Homes      `yaml:"homes"`
	AdminOnUserRoute   string      `yaml:"admin_on_user_route"`
	BackNavigation     string      `yaml:"back_navigation_logout"`
	RestoreWaitCeiling string      `yaml:"restore_wait_ceiling"`
	Routes             route.Table `yaml:"routes"`
}

// ParsePolicy はYAMLをbaseに重ねてポリシーを組み立て、検証する。
// baseがnilの場合はDefaultPolicyに重ねる。baseは変更しない。
func ParsePolicy(data []byte, base *Policy) (*Policy, error) {
	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// 空ファイルはベースのまま
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode policy: %w", err)
	}

	if base == nil {
		base = DefaultPolicy()
	}
	p := base.clone()
	if f.Homes != nil {
		if f.Homes.Login != "" {
			p.Homes.Login = f.Homes.Login
		}
		if f.Homes.User != "" {
			p.Homes.User = f.Homes.User
		}
		if f.Homes.Admin != "" {
			p.Homes.Admin = f.Homes.Admin
		}
	}
	if f.AdminOnUserRoute != "" {
		p.AdminOnUserRoute = Outcome(f.AdminOnUserRoute)
	}
	if f.BackNavigation != "" {
		p.BackNavigation = BackNavigationCheck(f.BackNavigation)
	}
	if f.RestoreWaitCeiling != "" {
		d, err := time.ParseDuration(f.RestoreWaitCeiling)
		if err != nil {
			return nil, fmt.Errorf("invalid restore_wait_ceiling: %w", err)
		}
		p.WaitCeiling = d
	}
	if len(f.Routes) > 0 {
		p.Routes = f.Routes
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// LoadPolicyFile はファイルからポリシーを読み込む。
func LoadPolicyFile(path string, base *Policy) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data, base)
}

func (p *Policy) clone() *Policy {
	c := *p
	c.Routes = append(route.Table(nil), p.Routes...)
	return &c
}
