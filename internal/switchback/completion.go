package switchback

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func CompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Args:  cobra.ExactArgs(1),
		Long: `To load completions:

Bash:
  $ source <(switchback completion bash)
  # Permanently:
  $ switchback completion bash > /etc/bash_completion.d/switchback  # Linux
  $ switchback completion bash > /usr/local/etc/bash_completion.d/switchback  # macOS

Zsh:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  $ source <(switchback completion zsh)

Fish:
  $ switchback completion fish | source

Powershell:
  PS> switchback completion powershell | Out-String | Invoke-Expression
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell type: %s", args[0])
			}
		},
	}

	return cmd
}
