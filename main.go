package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/golang/glog"

	"github.com/tomoris/BHMM/bayspos"
	"github.com/tomoris/BHMM/report"
)

func writeFile(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// defineConfigFlags declares one flag per Config field on fs, defaulting to defaults.
func defineConfigFlags(fs *flag.FlagSet, defaults bayspos.Config) {
	fs.String("model", defaults.Model, "model variant, m1 to m10")
	fs.Int("stateC", defaults.StateC, "number of content states")
	fs.Int("stateF", defaults.StateF, "number of function states")
	fs.Int("topicK", defaults.TopicK, "number of topics")

	fs.Float64("alpha", defaults.Hyper.Alpha, "hyper-parameter of document-topic")
	fs.Float64("beta", defaults.Hyper.Beta, "hyper-parameter of topic-word")
	fs.Float64("gamma", defaults.Hyper.Gamma, "hyper-parameter of state transitions")
	fs.Float64("delta", defaults.Hyper.Delta, "hyper-parameter of state-word")
	fs.Float64("psi", defaults.Hyper.Psi, "concentration of affix DP")
	fs.Float64("xi", defaults.Hyper.Xi, "concentration of stem DP")
	fs.Float64("muStem", defaults.Hyper.MuStem, "base weight of stems")
	fs.Float64("muAffix", defaults.Hyper.MuAffix, "base weight of affixes")
	fs.Float64("stemBoundaryProb", defaults.Hyper.StemBoundaryProb, "stop probability of stem characters")
	fs.Float64("affixBoundaryProb", defaults.Hyper.AffixBoundaryProb, "stop probability of affix characters")

	fs.Float64("initialTemperature", defaults.Schedule.InitialTemperature, "temperature of the first outer iteration")
	fs.Float64("targetTemperature", defaults.Schedule.TargetTemperature, "temperature of the last outer iteration")
	fs.Float64("temperatureDecrement", defaults.Schedule.TemperatureDecrement, "temperature decrement per outer iteration")
	fs.Int("iterations", defaults.InnerIterations, "sweeps per outer iteration")
	fs.Int("decodeIterations", defaults.DecodeIterations, "decoding sweeps after training, and sampling sweeps of test inference")
	fs.Uint64("seed", defaults.Seed, "random seed")
	fs.Bool("resampleHyper", defaults.ResampleHyper, "resample gamma and delta after every outer iteration")
	fs.Int("hyperSteps", defaults.HyperSteps, "Metropolis-Hastings steps per hyper-parameter")
	fs.Bool("lower", defaults.Lower, "lowercase words")
	fs.Bool("progress", defaults.Progress, "show a progress bar per sweep")
	fs.Int("topN", defaults.TopN, "words per state and topic in the summary")
}

// applyOverrides copies every config flag set on the command line into cfg and returns their names.
func applyOverrides(fs *flag.FlagSet, cfg *bayspos.Config) []string {
	var applied []string
	fs.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		v := getter.Get()
		switch f.Name {
		case "model":
			cfg.Model = v.(string)
		case "stateC":
			cfg.StateC = v.(int)
		case "stateF":
			cfg.StateF = v.(int)
		case "topicK":
			cfg.TopicK = v.(int)
		case "alpha":
			cfg.Hyper.Alpha = v.(float64)
		case "beta":
			cfg.Hyper.Beta = v.(float64)
		case "gamma":
			cfg.Hyper.Gamma = v.(float64)
		case "delta":
			cfg.Hyper.Delta = v.(float64)
		case "psi":
			cfg.Hyper.Psi = v.(float64)
		case "xi":
			cfg.Hyper.Xi = v.(float64)
		case "muStem":
			cfg.Hyper.MuStem = v.(float64)
		case "muAffix":
			cfg.Hyper.MuAffix = v.(float64)
		case "stemBoundaryProb":
			cfg.Hyper.StemBoundaryProb = v.(float64)
		case "affixBoundaryProb":
			cfg.Hyper.AffixBoundaryProb = v.(float64)
		case "initialTemperature":
			cfg.Schedule.InitialTemperature = v.(float64)
		case "targetTemperature":
			cfg.Schedule.TargetTemperature = v.(float64)
		case "temperatureDecrement":
			cfg.Schedule.TemperatureDecrement = v.(float64)
		case "iterations":
			cfg.InnerIterations = v.(int)
		case "decodeIterations":
			cfg.DecodeIterations = v.(int)
		case "seed":
			cfg.Seed = v.(uint64)
		case "resampleHyper":
			cfg.ResampleHyper = v.(bool)
		case "hyperSteps":
			cfg.HyperSteps = v.(int)
		case "lower":
			cfg.Lower = v.(bool)
		case "progress":
			cfg.Progress = v.(bool)
		case "topN":
			cfg.TopN = v.(int)
		default:
			return
		}
		applied = append(applied, f.Name)
	})
	return applied
}

func main() {
	defaults := bayspos.DefaultConfig()
	var (
		flagConfig = flag.String("config", "", "YAML configuration; flags given on the command line override it")
		flagTrain  = flag.String("train", "", "training corpus directory")
		flagTest   = flag.String("test", "", "test corpus directory")
		flagLoad   = flag.String("load", "", "snapshot to load instead of building a model from -train; its configuration replaces -config and the model flags")
		flagResume = flag.Bool("resume", false, "continue training a model given by -load with the configuration stored in the snapshot")
		flagSave   = flag.String("save", "", "snapshot path, written after every outer iteration")
		flagOut    = flag.String("out", "-", "summary output path")
		flagCross  = flag.String("crosstab", "", "state x gold tag table output path")
		flagSQLite = flag.String("sqlite", "", "SQLite database to export the summary to")
	)
	defineConfigFlags(flag.CommandLine, defaults)
	flag.Parse()
	defer glog.Flush()

	cfg := defaults
	if *flagConfig != "" {
		var err error
		cfg, err = bayspos.LoadConfig(*flagConfig)
		if err != nil {
			glog.Exitf("load config: %v", err)
		}
	}
	overridden := applyOverrides(flag.CommandLine, &cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var bhmm *bayspos.BHMM
	train := true
	if *flagLoad != "" {
		var err error
		bhmm, err = bayspos.Load(*flagLoad)
		if err != nil {
			glog.Exitf("%v", err)
		}
		train = *flagResume
		if *flagConfig != "" || len(overridden) > 0 {
			glog.Warningf("the configuration of %v is used; ignoring -config %q and flags %v", *flagLoad, *flagConfig, overridden)
		}
		glog.Infof("loaded run %v at iteration %v", bhmm.RunID(), bhmm.Iteration())
	} else {
		if *flagTrain == "" {
			glog.Exitf("either -train or -load is required")
		}
		modelConfig, err := bayspos.LookupModel(cfg.Model)
		if err != nil {
			glog.Exitf("%v", err)
		}
		data := bayspos.NewDataContainer(modelConfig.Order, nil, nil)
		data.Lower = cfg.Lower
		if err := data.ReadCorpus(*flagTrain); err != nil {
			glog.Exitf("%v", err)
		}
		glog.Infof("read %v tokens, %v sentences, %v documents, %v word types", data.NumTokens(), data.NumSentences, data.NumDocuments, data.Vocab.Size()-1)
		bhmm, err = bayspos.GenerateBHMM(cfg, data)
		if err != nil {
			glog.Exitf("%v", err)
		}
	}

	if train {
		var checkpoint func(*bayspos.BHMM) error
		if *flagSave != "" {
			checkpoint = func(bhmm *bayspos.BHMM) error {
				return bhmm.Save(*flagSave)
			}
		}
		if err := bhmm.Train(ctx, checkpoint); err != nil {
			glog.Exitf("train: %v", err)
		}
		if bhmm.Config().DecodeIterations > 0 {
			if err := bhmm.Decode(); err != nil {
				glog.Exitf("%v", err)
			}
		}
		if *flagSave != "" {
			if err := bhmm.Save(*flagSave); err != nil {
				glog.Exitf("%v", err)
			}
		}
	}

	summary := bhmm.Normalize(bhmm.Config().TopN)
	if err := writeFile(*flagOut, func(w io.Writer) error { return report.WriteSummary(w, summary) }); err != nil {
		glog.Exitf("write summary: %v", err)
	}
	if *flagCross != "" {
		if err := writeFile(*flagCross, func(w io.Writer) error { return report.WriteCrossTab(w, bhmm.CrossTab()) }); err != nil {
			glog.Exitf("write cross tabulation: %v", err)
		}
	}
	if *flagSQLite != "" {
		if err := report.ExportSQLite(ctx, *flagSQLite, summary); err != nil {
			glog.Exitf("export: %v", err)
		}
	}

	if *flagTest != "" {
		trainData := bhmm.Assignments().Data
		test := bayspos.NewDataContainer(trainData.Padding, trainData.Vocab.Clone(), trainData.TagVocab.Clone())
		test.Lower = trainData.Lower
		if err := test.ReadCorpus(*flagTest); err != nil {
			glog.Exitf("%v", err)
		}
		tagging, err := bhmm.Infer(ctx, test, bhmm.Config().DecodeIterations)
		if err != nil {
			glog.Exitf("infer: %v", err)
		}
		fmt.Println("test")
		if err := report.WriteCrossTab(os.Stdout, tagging.CrossTab()); err != nil {
			glog.Exitf("write test cross tabulation: %v", err)
		}
	}
}
