package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var scanJSON bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show gateway identity and the selected device model",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		info := gw.Info()
		fmt.Printf("UUID:       %s\n", info.UUID)
		fmt.Printf("Firmware:   %s\n", info.FirmwareVersion)
		fmt.Printf("Hardware:   %s\n", info.HardwareVersion)
		if t, err := gw.DeviceTime(cmd.Context()); err == nil {
			fmt.Printf("Time:       %s\n", t)
		}
		if m, known := gw.Model(); m != nil {
			suffix := ""
			if !known {
				suffix = " (default, firmware not listed)"
			}
			fmt.Printf("Model:      %s%s\n", m.Name, suffix)
			fmt.Printf("Bus:        %s\n", m.Bus)
		}
		fmt.Printf("Circuits:   %d\n", len(gw.Circuits()))
		fmt.Printf("Sensors:    %d\n", len(gw.Sensors()))
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Walk all gateway paths and print every value",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway()
		if err != nil {
			return err
		}

		nodes, err := gw.Rawscan(cmd.Context())
		if err != nil {
			return err
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", n.ID, n.String(), n.Unit)
		}
		return w.Flush()
	},
}

var circuitsCmd = &cobra.Command{
	Use:   "circuits",
	Short: "List circuits with mode and temperatures",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tMODE\tALLOWED\tTARGET\tRANGE\tCURRENT")
		for _, c := range gw.Circuits() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f..%.1f\t%s\n",
				c.Name(), c.Type(), c.CurrentMode(), strings.Join(c.AllowedModes(), ","),
				temperature(c.TargetTemperature()), c.MinTemperature(), c.MaxTemperature(),
				temperature(c.CurrentTemperature()))
		}
		return w.Flush()
	},
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List sensor readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tVALUE\tUNIT")
		for _, s := range gw.Sensors() {
			value := s.Text()
			if !s.Valid() {
				value = "n/a"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Key(), s.Name(), value, s.Unit())
		}
		return w.Flush()
	},
}

var setModeCmd = &cobra.Command{
	Use:   "set-mode <circuit> <mode>",
	Short: "Change the operation mode of a circuit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		c, err := gw.Circuit(args[0])
		if err != nil {
			return err
		}

		mode, err := c.SetOperationMode(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if mode == "" {
			return fmt.Errorf("%s: mode %q rejected, current %q, allowed %s",
				c.Name(), args[1], c.CurrentMode(), strings.Join(c.AllowedModes(), ","))
		}
		fmt.Printf("%s: mode %s\n", c.Name(), mode)
		return nil
	},
}

var setTempCmd = &cobra.Command{
	Use:   "set-temp <circuit> <temperature>",
	Short: "Change the target temperature of a circuit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		temp, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q: %w", args[1], err)
		}

		gw, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		c, err := gw.Circuit(args[0])
		if err != nil {
			return err
		}

		ok, err := c.SetTemperature(cmd.Context(), temp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %.1f rejected, allowed range is (%.1f, %.1f) in mode %q",
				c.Name(), temp, c.MinTemperature(), c.MaxTemperature(), c.CurrentMode())
		}
		fmt.Printf("%s: target %.1f\n", c.Name(), temp)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the nodes as json")
}

func temperature(t float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(t, 'f', 1, 64)
}
