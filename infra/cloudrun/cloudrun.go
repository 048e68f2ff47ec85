package cloudrun

import (
	"fmt"
	"strconv"

	"github.com/pulumi/pulumi-docker/sdk/v4/go/docker"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudrun"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/aprendu/aprendu-backend/infra/common"
	infradocker "github.com/aprendu/aprendu-backend/infra/docker"
	"github.com/aprendu/aprendu-backend/infra/kms"
	"github.com/aprendu/aprendu-backend/infra/secret"
)

// projectRoles are granted to the API service account.
var projectRoles = map[string]string{
	"firestoreAccess": "roles/datastore.user",
	"vertexAccess":    "roles/aiplatform.user",
}

func SetupCloudRun(ctx *pulumi.Context, prov *gcp.Provider, keyName pulumi.StringOutput, res ...pulumi.Resource) (pulumi.StringOutput, error) {
	empty := pulumi.String("").ToStringOutput()

	img, err := buildApiImage(ctx, res...)
	if err != nil {
		return empty, err
	}

	srv, err := enableCloudRun(ctx, prov)
	if err != nil {
		return empty, err
	}

	apiSA, err := createServiceAccount(ctx, prov)
	if err != nil {
		return empty, err
	}

	if err := kms.GrantEncrypterDecrypter(ctx, prov, keyName, apiSA); err != nil {
		return empty, err
	}

	llmKey, err := secret.SetupLLMKey(ctx, prov, apiSA)
	if err != nil {
		return empty, err
	}

	deps := []pulumi.Resource{srv}
	if llmKey.Service != nil {
		deps = append(deps, llmKey.Service)
	}

	svc, err := createCloudRunService(ctx, img, apiSA, keyName, llmKey.SecretID, prov, deps...)
	if err != nil {
		return empty, err
	}

	if err := setIAMAccessPolicy(ctx, svc, prov); err != nil {
		return empty, err
	}

	return svc.Statuses.Index(pulumi.Int(0)).Url().Elem(), nil
}

func buildApiImage(ctx *pulumi.Context, res ...pulumi.Resource) (*docker.Image, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")

	hash, err := common.GenerateHash("../")
	if err != nil {
		return nil, err
	}

	return docker.NewImage(ctx, "apiImage", &docker.ImageArgs{
		Build: docker.DockerBuildArgs{
			Platform:   pulumi.String("linux/amd64"),
			Context:    pulumi.String(".."),                    // build from repo root
			Dockerfile: pulumi.String("../cmd/api/Dockerfile"), // Dockerfile path relative to repo root
		},
		ImageName: pulumi.String(fmt.Sprintf("%s-docker.pkg.dev/%s/%s/aprendu-api:%s", region, projectID, infradocker.RepositoryID, hash)),
	},
		pulumi.DependsOn(res),
	)
}

func enableCloudRun(ctx *pulumi.Context, prov *gcp.Provider) (*projects.Service, error) {
	return projects.NewService(ctx, "cloudRunService", &projects.ServiceArgs{
		Service: pulumi.String("run.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
}

func createServiceAccount(ctx *pulumi.Context, prov *gcp.Provider) (*serviceaccount.Account, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")

	apiSA, err := serviceaccount.NewAccount(ctx, "apiServiceAccount", &serviceaccount.AccountArgs{
		AccountId:   pulumi.String("aprendu-api"),
		DisplayName: pulumi.String("Aprendu dashboard API"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	member := apiSA.Email.ApplyT(func(email string) string {
		return fmt.Sprintf("serviceAccount:%s", email)
	}).(pulumi.StringOutput)

	for name, role := range projectRoles {
		_, err = projects.NewIAMMember(ctx, name, &projects.IAMMemberArgs{
			Role:    pulumi.String(role),
			Member:  member,
			Project: pulumi.String(projectID),
		},
			pulumi.Provider(prov),
		)
		if err != nil {
			return nil, err
		}
	}

	return apiSA, nil
}

func env(name string, value pulumi.StringInput) *cloudrun.ServiceTemplateSpecContainerEnvArgs {
	return &cloudrun.ServiceTemplateSpecContainerEnvArgs{
		Name:  pulumi.String(name),
		Value: value,
	}
}

func createCloudRunService(ctx *pulumi.Context,
	img *docker.Image,
	apiSA *serviceaccount.Account,
	keyName pulumi.StringOutput,
	llmKey pulumi.StringOutput,
	prov *gcp.Provider,
	res ...pulumi.Resource) (*cloudrun.Service, error) {
	gcpCfg := config.New(ctx, "gcp")
	crCfg := config.New(ctx, "cloudrun")
	llmCfg := config.New(ctx, "llm")
	appCfg := config.New(ctx, "app")

	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")
	minScale := crCfg.Require("minScale")
	maxScale := crCfg.Require("maxScale")
	cpu := crCfg.Require("cpu")
	memory := crCfg.Require("memory")
	concurrency := crCfg.Require("concurrency")
	logLevel := crCfg.Require("logLevel")
	timeout, _ := strconv.Atoi(crCfg.Require("timeout"))

	envs := cloudrun.ServiceTemplateSpecContainerEnvArray{
		env("PROJECTID", pulumi.String(projectID)),
		env("REGION", pulumi.String(region)),
		env("LOGLEVEL", pulumi.String(logLevel)),
		env("AUTHMODE", pulumi.String("firebase")),
		env("STOREBACKEND", pulumi.String("firestore")),
		env("KMSKEYNAME", keyName),
		env("LLMPROVIDER", pulumi.String(llmCfg.Get("provider"))),
		env("LLMMODEL", pulumi.String(llmCfg.Get("model"))),
		env("LLMAPIKEYSECRET", llmKey),
	}
	for _, key := range []string{"historyLimit", "sessionTTL", "aiTTL"} {
		if v := appCfg.Get(key); v != "" {
			envs = append(envs, env(envName(key), pulumi.String(v)))
		}
	}

	return cloudrun.NewService(ctx, "apiService", &cloudrun.ServiceArgs{
		Location: pulumi.String(region),

		Template: &cloudrun.ServiceTemplateArgs{

			Metadata: &cloudrun.ServiceTemplateMetadataArgs{
				Annotations: pulumi.StringMap{
					// Autoscaling bounds
					"autoscaling.knative.dev/minScale": pulumi.String(minScale),
					"autoscaling.knative.dev/maxScale": pulumi.String(maxScale),

					// Instance sizing
					"run.googleapis.com/cpu":    pulumi.String(cpu),
					"run.googleapis.com/memory": pulumi.String(memory),

					// Session registries live in memory, keep CPU for the sweep ticker
					"run.googleapis.com/cpu-throttling": pulumi.String("false"),

					"run.googleapis.com/container-concurrency": pulumi.String(concurrency),

					// Dashboard sessions are per instance
					"run.googleapis.com/sessionAffinity": pulumi.String("true"),
				},
			},

			Spec: &cloudrun.ServiceTemplateSpecArgs{
				ServiceAccountName: apiSA.Email,
				TimeoutSeconds:     pulumi.Int(timeout),

				Containers: cloudrun.ServiceTemplateSpecContainerArray{
					&cloudrun.ServiceTemplateSpecContainerArgs{
						Image: img.ImageName,
						Ports: cloudrun.ServiceTemplateSpecContainerPortArray{
							&cloudrun.ServiceTemplateSpecContainerPortArgs{
								ContainerPort: pulumi.Int(8080),
							},
						},
						Envs: envs,
					},
				},
			},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
}

func envName(key string) string {
	switch key {
	case "historyLimit":
		return "HISTORYLIMIT"
	case "sessionTTL":
		return "SESSIONTTL"
	default:
		return "AITTL"
	}
}

func setIAMAccessPolicy(ctx *pulumi.Context, svc *cloudrun.Service, prov *gcp.Provider) error {
	gcpCfg := config.New(ctx, "gcp")
	region := gcpCfg.Require("region")

	// Firebase ID tokens are verified by the API itself
	_, err := cloudrun.NewIamMember(ctx, "publicInvoker", &cloudrun.IamMemberArgs{
		Service:  svc.Name,
		Location: pulumi.String(region),
		Role:     pulumi.String("roles/run.invoker"),
		Member:   pulumi.String("allUsers"),
	},
		pulumi.Provider(prov),
	)
	return err
}
