package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sourceplane/roleflow/internal/loader"
	"github.com/sourceplane/roleflow/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate PLAYBOOK",
	Short: "Validate playbook and dependency declarations against their schemas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateDocs(args[0])
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateDocs(playbookPath string) error {
	v, err := schema.NewValidator()
	if err != nil {
		return err
	}

	fmt.Println("□ Validating playbook...")
	doc, err := loadYAMLDocument(playbookPath)
	if err != nil {
		return fmt.Errorf("failed to load playbook: %w", err)
	}
	if err := v.ValidatePlaybook(doc); err != nil {
		return fmt.Errorf("playbook validation failed: %w", err)
	}
	fmt.Println("✓ Playbook is valid")

	depsPath := depsFile
	if depsPath == "" {
		depsPath = loader.DefaultDepsPath(playbookPath)
	}
	if _, err := os.Stat(depsPath); err == nil {
		fmt.Println("□ Validating dependency declarations...")
		doc, err := loadYAMLDocument(depsPath)
		if err != nil {
			return fmt.Errorf("failed to load declarations: %w", err)
		}
		if err := v.ValidateDeclarations(doc); err != nil {
			return fmt.Errorf("declarations validation failed: %w", err)
		}
		fmt.Println("✓ Declarations are valid")
	}

	fmt.Println("✓ All validation passed")
	return nil
}

func loadYAMLDocument(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
