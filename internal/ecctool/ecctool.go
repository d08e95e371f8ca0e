/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ecctool implements the ecctool command line.
package ecctool

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/factory"
	"github.com/hyperledger/fabric-ecc/bccsp/hw"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var logger = flogging.MustGetLogger("ecctool")

// env holds what every subcommand needs once flags are parsed.
type env struct {
	v         *viper.Viper
	providers *factory.Providers
	curve     bccsp.CurveID
	software  bool
}

// NewCommand returns the root command.
func NewCommand() *cobra.Command {
	e := &env{}
	var configFile string

	root := &cobra.Command{
		Use:           "ecctool",
		Short:         "Elliptic curve operations on IBM Z hardware or in software.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd, configFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.providers == nil {
				return nil
			}
			return e.providers.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.String("curve", "P-256", "curve name")
	flags.String("tier", "hw", "tier to run on: hw or sw")
	flags.Bool("emulate", false, "emulate the CPACF instructions and the coprocessor")
	flags.String("device", "", "zcrypt device node")
	flags.Bool("offload", false, "send ECDH, signing and verification to the coprocessor")
	flags.String("log-spec", "", "logging level specification")
	flags.String("log-format", "", "logging format: console, json or logfmt")

	root.AddCommand(
		keygenCmd(e),
		signCmd(e),
		verifyCmd(e),
		ecdhCmd(e),
		deriveCmd(e),
	)
	return root
}

var flagKeys = map[string]string{
	"tier":       "default",
	"emulate":    "hw.emulate",
	"device":     "hw.device",
	"offload":    "hw.offload",
	"log-spec":   "logging.spec",
	"log-format": "logging.format",
}

func (e *env) init(cmd *cobra.Command, configFile string) error {
	v, err := factory.NewViper(configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return errors.Wrapf(err, "binding flag %s", name)
		}
	}
	e.v = v

	if err := flogging.Global.Apply(flogging.Config{
		Format:  v.GetString("logging.format"),
		LogSpec: v.GetString("logging.spec"),
		Writer:  cmd.ErrOrStderr(),
	}); err != nil {
		return err
	}

	// Parsing of the command line is done so silence cmd usage
	cmd.SilenceUsage = true

	opts, err := factory.LoadOpts(v)
	if err != nil {
		return err
	}
	// the tier flag selects the provider, without it the file or the
	// environment does
	opts.Default = strings.ToUpper(opts.Default)
	if opts.Default != factory.HardwareFactoryName && opts.Default != factory.SoftwareFactoryName {
		return errors.Errorf("unknown tier %q, use hw or sw", v.GetString("default"))
	}
	e.providers, err = factory.New(opts)
	if err != nil {
		return err
	}
	e.software = e.providers.Default == factory.SoftwareFactoryName

	name, _ := cmd.Flags().GetString("curve")
	e.curve, err = bccsp.ParseCurveID(name)
	if err != nil {
		return err
	}
	logger.Debugf("running %s on %s with the %s tier", cmd.Name(), e.curve, e.providers.Default)
	return nil
}

func decodeHex(flags *pflag.FlagSet, name string, required bool) ([]byte, error) {
	s, _ := flags.GetString(name)
	if s == "" {
		if required {
			return nil, errors.Errorf("--%s is required", name)
		}
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding --%s", name)
	}
	return b, nil
}

// readHash returns --hash, or the digest of --message under --digest.
func readHash(flags *pflag.FlagSet) ([]byte, error) {
	if msg, _ := flags.GetString("message"); msg != "" {
		name, _ := flags.GetString("digest")
		return bccsp.Digest(name, []byte(msg))
	}
	return decodeHex(flags, "hash", true)
}

func addHashFlags(cmd *cobra.Command, usage string) {
	cmd.Flags().String("hash", "", usage+", hex")
	cmd.Flags().String("message", "", "message to hash instead of --hash")
	cmd.Flags().String("digest", bccsp.SHA256, "hash function for --message")
}

func printKey(w io.Writer, key *bccsp.ECKey) {
	for _, f := range []struct {
		name string
		v    []byte
	}{{"d", key.D}, {"x", key.X}, {"y", key.Y}} {
		if f.v != nil {
			fmt.Fprintf(w, "%s: %s\n", f.name, hex.EncodeToString(f.v))
		}
	}
}

func keygenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key *bccsp.ECKey
			var err error
			if e.software {
				err = e.providers.Software(hw.OpGenerateKey, e.curve, func() (err error) {
					key, err = e.providers.SW.GenerateKeyPair(e.curve)
					return err
				})
			} else {
				key, err = e.providers.HW.GenerateKey(e.providers.Device, e.curve)
			}
			if err != nil {
				return err
			}
			defer key.Wipe()
			printKey(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func addKeyFlags(cmd *cobra.Command, private bool) {
	if private {
		cmd.Flags().String("d", "", "private value, hex")
	}
	cmd.Flags().String("x", "", "public x coordinate or encoded public value, hex")
	cmd.Flags().String("y", "", "public y coordinate, hex")
}

func (e *env) readKey(flags *pflag.FlagSet, private bool) (*bccsp.ECKey, error) {
	key := &bccsp.ECKey{Curve: e.curve}
	var err error
	if private {
		if key.D, err = decodeHex(flags, "d", true); err != nil {
			return nil, err
		}
	}
	if key.X, err = decodeHex(flags, "x", !private); err != nil {
		return nil, err
	}
	if key.Y, err = decodeHex(flags, "y", false); err != nil {
		return nil, err
	}
	return key, nil
}

func signCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a hash with ECDSA and print r||s.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := e.readKey(cmd.Flags(), true)
			if err != nil {
				return err
			}
			defer key.Wipe()
			hash, err := readHash(cmd.Flags())
			if err != nil {
				return err
			}

			var sig []byte
			if e.software {
				err = e.providers.Software(hw.OpSign, e.curve, func() (err error) {
					sig, err = e.providers.SW.Sign(key, hash)
					return err
				})
			} else {
				sig, err = e.providers.HW.ECDSASign(e.providers.Device, key, hash)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sig))
			return nil
		},
	}
	addKeyFlags(cmd, true)
	addHashFlags(cmd, "hash to sign")
	return cmd
}

func verifyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an r||s ECDSA signature.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := e.readKey(cmd.Flags(), false)
			if err != nil {
				return err
			}
			hash, err := readHash(cmd.Flags())
			if err != nil {
				return err
			}
			sig, err := decodeHex(cmd.Flags(), "sig", true)
			if err != nil {
				return err
			}

			if e.software {
				err = e.providers.Software(hw.OpVerify, e.curve, func() error {
					return e.providers.SW.Verify(pub, hash, sig)
				})
			} else {
				err = e.providers.HW.ECDSAVerify(e.providers.Device, pub, hash, sig)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return nil
		},
	}
	addKeyFlags(cmd, false)
	addHashFlags(cmd, "signed hash")
	cmd.Flags().String("sig", "", "signature r||s, hex")
	return cmd
}

func ecdhCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ecdh",
		Short: "Derive the shared secret of a private key and a peer public key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			d, err := decodeHex(flags, "d", true)
			if err != nil {
				return err
			}
			defer bccsp.Wipe(d)
			px, err := decodeHex(flags, "peer-x", true)
			if err != nil {
				return err
			}
			py, err := decodeHex(flags, "peer-y", false)
			if err != nil {
				return err
			}
			priv := &bccsp.ECKey{Curve: e.curve, D: d}
			peer := &bccsp.ECKey{Curve: e.curve, X: px, Y: py}

			var z []byte
			switch {
			case e.software:
				err = e.providers.Software(hw.OpECDH, e.curve, func() (err error) {
					z, err = e.providers.SW.DeriveSharedSecret(priv, peer)
					return err
				})
			case e.curve == bccsp.X25519:
				z, err = e.providers.HW.X25519(d, px)
			case e.curve == bccsp.X448:
				z, err = e.providers.HW.X448(d, px)
			default:
				z, err = e.providers.HW.ECDH(e.providers.Device, priv, peer)
			}
			if err != nil {
				return err
			}
			defer bccsp.Wipe(z)
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(z))
			return nil
		},
	}
	cmd.Flags().String("d", "", "private value, hex")
	cmd.Flags().String("peer-x", "", "peer x coordinate or u coordinate, hex")
	cmd.Flags().String("peer-y", "", "peer y coordinate, hex")
	return cmd
}

func deriveCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the public key of a private value.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decodeHex(cmd.Flags(), "d", true)
			if err != nil {
				return err
			}
			defer bccsp.Wipe(d)

			if e.software {
				var pub *bccsp.ECKey
				err = e.providers.Software(hw.OpPublicKey, e.curve, func() (err error) {
					pub, err = e.providers.SW.PublicKey(&bccsp.ECKey{Curve: e.curve, D: d})
					return err
				})
				if err != nil {
					return err
				}
				printKey(cmd.OutOrStdout(), pub)
				return nil
			}

			derive := map[bccsp.CurveID]func([]byte) ([]byte, error){
				bccsp.X25519:  e.providers.HW.X25519DerivePublic,
				bccsp.X448:    e.providers.HW.X448DerivePublic,
				bccsp.Ed25519: e.providers.HW.Ed25519DerivePublic,
				bccsp.Ed448:   e.providers.HW.Ed448DerivePublic,
			}[e.curve]
			if derive == nil {
				return errors.Wrapf(bccsp.ErrInvalidArgument, "the hardware tier derives public values for X25519, X448, Ed25519 and Ed448, not %s", e.curve)
			}
			x, err := derive(d)
			if err != nil {
				return err
			}
			printKey(cmd.OutOrStdout(), &bccsp.ECKey{X: x})
			return nil
		},
	}
	cmd.Flags().String("d", "", "private value, hex")
	return cmd
}
