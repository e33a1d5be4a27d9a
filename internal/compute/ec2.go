package compute

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const tagLabType = "labstack:lab-type"

// EC2Config configures the EC2-backed compute API.
type EC2Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AMI             string
	InstanceType    string // e.g. "t2.micro"
	SubnetID        string // public subnet
	SecurityGroupID string
	KeyName         string // optional ssh key pair
}

// EC2 implements API using AWS EC2 instances.
type EC2 struct {
	client *ec2.Client
	cfg    EC2Config
}

// NewEC2 creates an EC2-backed compute API.
// If AccessKeyID is empty, uses the default AWS credential chain (IAM instance profile, env vars, etc.).
func NewEC2(cfg EC2Config) (*EC2, error) {
	var client *ec2.Client

	if cfg.AccessKeyID != "" {
		// Static credentials
		awsCfg := aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		}
		client = ec2.NewFromConfig(awsCfg)
	} else {
		// IAM credential chain
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
		)
		if err != nil {
			return nil, fmt.Errorf("ec2: failed to load AWS config: %w", err)
		}
		client = ec2.NewFromConfig(awsCfg)
	}

	return &EC2{
		client: client,
		cfg:    cfg,
	}, nil
}

// CreateInstance launches exactly one instance with the boot payload as
// user-data. One billable resource per successful call; no retry, no dedup.
func (e *EC2) CreateInstance(ctx context.Context, spec LaunchSpec) (string, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(e.cfg.AMI),
		InstanceType: ec2types.InstanceType(e.cfg.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(base64.StdEncoding.EncodeToString([]byte(spec.BootPayload))),
		NetworkInterfaces: []ec2types.InstanceNetworkInterfaceSpecification{
			{
				DeviceIndex:              aws.Int32(0),
				SubnetId:                 aws.String(e.cfg.SubnetID),
				AssociatePublicIpAddress: aws.Bool(true),
				Groups:                   []string{e.cfg.SecurityGroupID},
			},
		},
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags: []ec2types.Tag{
					{Key: aws.String("Name"), Value: aws.String("labstack-lab")},
					{Key: aws.String(tagLabType), Value: aws.String(spec.LabType)},
				},
			},
		},
	}

	if e.cfg.KeyName != "" {
		input.KeyName = aws.String(e.cfg.KeyName)
	}

	result, err := e.client.RunInstances(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ec2: RunInstances failed: %w", err)
	}
	if len(result.Instances) == 0 {
		return "", fmt.Errorf("ec2: no instances returned")
	}

	return aws.ToString(result.Instances[0].InstanceId), nil
}

// DescribeInstance returns the instance's power state and public address, if any.
func (e *EC2) DescribeInstance(ctx context.Context, resourceID string) (*InstanceState, error) {
	result, err := e.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{resourceID},
	})
	if err != nil {
		return nil, fmt.Errorf("ec2: DescribeInstances failed for %s: %w", resourceID, err)
	}
	if len(result.Reservations) == 0 || len(result.Reservations[0].Instances) == 0 {
		return nil, fmt.Errorf("ec2: instance %s not found", resourceID)
	}

	inst := result.Reservations[0].Instances[0]
	state := &InstanceState{}
	if inst.State != nil {
		state.PowerState = PowerState(inst.State.Name)
	}
	if inst.PublicIpAddress != nil {
		state.PublicAddress = aws.ToString(inst.PublicIpAddress)
	}
	return state, nil
}

func (e *EC2) TerminateInstance(ctx context.Context, resourceID string) error {
	_, err := e.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{resourceID},
	})
	if err != nil {
		return fmt.Errorf("ec2: TerminateInstances failed for %s: %w", resourceID, err)
	}
	return nil
}
