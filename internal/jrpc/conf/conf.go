package conf

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/internal/errors"
	"github.com/sjzar/jrpc/pkg/config"
)

const (
	AppName          = "jrpc"
	ClientConfigName = "jrpc"
	ServerConfigName = "jrpc-server"
	ClientEnvPrefix  = "JRPC_CLIENT"
	ServerEnvPrefix  = "JRPC_SERVER"
	EnvConfigDir     = "JRPC_DIR"
)

// LoadClientConfig 加载客户端配置
// 优先级：命令行 > 环境变量 > 配置文件 > 默认值
func LoadClientConfig(configPath string, cmdConf map[string]any) (*ClientConfig, *config.Manager, error) {
	conf := &ClientConfig{}
	ccm, err := load(configPath, ClientConfigName, ClientEnvPrefix, conf, ClientDefaults, cmdConf)
	if err != nil {
		log.Error().Err(err).Msg("load client config failed")
		return nil, nil, err
	}
	conf.ConfigDir = ccm.Path

	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}

	b, _ := json.Marshal(conf.Redacted())
	log.Debug().Msgf("client config: %s", string(b))

	return conf, ccm, nil
}

// LoadServerConfig 加载服务配置
func LoadServerConfig(configPath string, cmdConf map[string]any) (*ServerConfig, *config.Manager, error) {
	conf := &ServerConfig{}
	scm, err := load(configPath, ServerConfigName, ServerEnvPrefix, conf, ServerDefaults, cmdConf)
	if err != nil {
		log.Error().Err(err).Msg("load server config failed")
		return nil, nil, err
	}
	conf.ConfigDir = scm.Path

	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}

	b, _ := json.Marshal(conf)
	log.Info().Msgf("server config: %s", string(b))

	return conf, scm, nil
}

func load(configPath, name, envPrefix string, conf any, defaults map[string]any, cmdConf map[string]any) (*config.Manager, error) {
	if configPath == "" {
		configPath = os.Getenv(EnvConfigDir)
	}

	cm, err := config.New(AppName, configPath, name, envPrefix, false)
	if err != nil {
		return nil, errors.Config("init config", err)
	}

	config.SetDefaults(cm.Viper, conf, defaults)

	for key, value := range cmdConf {
		if err := cm.SetConfig(key, value); err != nil {
			return nil, errors.Config("set "+key, err)
		}
	}

	if err := cm.Load(conf); err != nil {
		return nil, errors.Config("load config", err)
	}
	return cm, nil
}
