// Package config loads tt's config.yaml.
//
// The file lives in ~/.config/tt by default. Values in the file are laid over
// Default, so a partial file only needs the keys it changes. Environments are
// decoded with key order preserved because `tt envs` and `tt ping` list them
// in file order.
package config
