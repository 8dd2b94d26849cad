/*
Package config manages configuration parsing and validation for bitablerc.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+-----+ +----+----+ +-----+-----+
	|   YAML    | |   HCL   | |   JSON    |
	|  Parser   | | Parser  | |  Parser   |
	+-----------+ +---------+ +-----------+

🎯 Purpose:
- Selects the table provider (feishu or memory)
- Holds Bitable credentials, with BITABLE_* environment fallbacks
- Holds paging and batching limits
- Holds the default match mode and field name filters

🔄 Flow:
1. Optional .env file is loaded into the environment (LoadEnvFile)
2. The config file is parsed by the parser registered for its extension
3. Defaults and ${VAR} expansion are applied
4. Overrides (command line flags) are applied
5. The result is validated

🔍 Example:

	cfg, err := config.LoadOrDefault(ctx, ".bitablerc.yaml")
	if err != nil {
		return err
	}
	client, err := table.Open(ctx, cfg)
*/
package config
