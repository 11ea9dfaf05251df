// Package output renders ssess-cli results as a table, JSON or YAML.
package output
