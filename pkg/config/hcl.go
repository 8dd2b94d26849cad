// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "bitablerc.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// env.APP_TOKEN style references resolve against the process environment
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	type hclConfig struct {
		Provider  string `hcl:"provider,optional"`
		PageSize  int    `hcl:"page_size,optional"`
		BatchSize int    `hcl:"batch_size,optional"`
		Regex     bool   `hcl:"regex,optional"`
		Feishu    *struct {
			BaseURL           string `hcl:"base_url,optional"`
			AppToken          string `hcl:"app_token,optional"`
			PersonalBaseToken string `hcl:"personal_base_token,optional"`
			Timeout           string `hcl:"timeout,optional"`
		} `hcl:"feishu,block"`
		Memory *struct {
			Fixture string `hcl:"fixture,optional"`
		} `hcl:"memory,block"`
		Fields *struct {
			Include []string `hcl:"include,optional"`
			Exclude []string `hcl:"exclude,optional"`
		} `hcl:"fields,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		Provider:  hclCfg.Provider,
		PageSize:  hclCfg.PageSize,
		BatchSize: hclCfg.BatchSize,
		Regex:     hclCfg.Regex,
	}
	if hclCfg.Feishu != nil {
		cfg.Feishu = FeishuArgs{
			BaseURL:           hclCfg.Feishu.BaseURL,
			AppToken:          hclCfg.Feishu.AppToken,
			PersonalBaseToken: hclCfg.Feishu.PersonalBaseToken,
			Timeout:           hclCfg.Feishu.Timeout,
		}
	}
	if hclCfg.Memory != nil {
		cfg.Memory.Fixture = hclCfg.Memory.Fixture
	}
	if hclCfg.Fields != nil {
		cfg.Fields = FieldFilter{
			Include: hclCfg.Fields.Include,
			Exclude: hclCfg.Fields.Exclude,
		}
	}

	return cfg, nil
}

func envObject() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
