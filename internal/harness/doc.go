// Package harness runs end-to-end cohort scenarios.
//
// A scenario seeds a fixture warehouse, compiles one request and checks the
// outcome against assertions. Every scenario runs against a fresh in-memory
// SQLite warehouse, so scenarios are isolated from each other.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	fixtures: ../warehouse.yaml    # or an inline `warehouse:` block
//	request:
//	  includes:
//	    - items:
//	        - type: CONDITION
//	          searchParameters:
//	            - { domain: CONDITION, type: ICD9CM, conceptId: 1 }
//	output:
//	  shape: count                 # count | demographics | person_ids | domain_chart
//	assertions:
//	  - type: count
//	    count: 1
//
// Fixture paths are relative to the scenario file.
//
// # Assertion Types
//
//   - count: the cohort count equals count
//   - person_ids: the person id list equals ids, in order
//   - rejected: compilation failed validation with code
//   - sql_contains: the compiled SQL contains fragment
//   - warehouse_count: a fixture table holds count rows matching where
//
// # Deterministic Output
//
// Compilations use a fixed compilation id (scenario.compilation_id, or
// "test-compilation") and a fresh parameter store, so the compiled SQL of a
// scenario is byte-identical across runs. RunWithGolden compares it against
// testdata/golden/<name>.golden.
package harness
